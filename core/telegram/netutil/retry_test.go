package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

func TestShouldRetry(t *testing.T) {
	require.False(t, ShouldRetry(nil))
	require.False(t, ShouldRetry(errors.New("bad request")))

	require.True(t, ShouldRetry(timeoutErr{}))
	require.True(t, ShouldRetry(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	require.True(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: timeoutErr{}}))
	require.False(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: errors.New("tls: bad certificate")}))
	require.True(t, ShouldRetry(&url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}))

	require.False(t, ShouldRetry(context.Canceled))
	require.False(t, ShouldRetry(&url.Error{Op: "Get", URL: "https://api.telegram.org", Err: context.DeadlineExceeded}))
}

func TestNewTransportIsPooled(t *testing.T) {
	tr := NewTransport()
	require.Equal(t, 10, tr.MaxIdleConnsPerHost)
	require.True(t, tr.ForceAttemptHTTP2)
	require.NotNil(t, tr.Proxy)
}
