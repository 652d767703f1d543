package telegram

import (
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type flakyTransport struct {
	failures int
	calls    int
	bodies   []string
}

func (f *flakyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	if req.Body != nil {
		b, _ := io.ReadAll(req.Body)
		f.bodies = append(f.bodies, string(b))
	}
	if f.calls <= f.failures {
		return nil, &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}
	}
	return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: req}, nil
}

func TestRetryTransportReplaysBody(t *testing.T) {
	flaky := &flakyTransport{failures: 2}
	rt := &retryTransport{next: flaky, retries: 3, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodPost, "https://api.telegram.org/botX/getUpdates", strings.NewReader("offset=1"))
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 3, flaky.calls)
	require.Equal(t, []string{"offset=1", "offset=1", "offset=1"}, flaky.bodies)
}

func TestRetryTransportGivesUp(t *testing.T) {
	flaky := &flakyTransport{failures: 10}
	rt := &retryTransport{next: flaky, retries: 2, backoff: time.Millisecond}

	req, err := http.NewRequest(http.MethodGet, "https://api.telegram.org/botX/getMe", nil)
	require.NoError(t, err)

	_, err = rt.RoundTrip(req)
	require.Error(t, err)
	require.Equal(t, 3, flaky.calls)
}
