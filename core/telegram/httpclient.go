package telegram

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/welgevonden/marketbot/core/logger"
	"github.com/welgevonden/marketbot/core/telegram/netutil"
)

const (
	// requestSlack is added to the long poll timeout so getUpdates is never
	// cut short by the client.
	requestSlack  = 20 * time.Second
	retryAttempts = 3
	retryBackoff  = 2 * time.Second
)

// BuildHTTPClient returns the client telebot uses for Bot API calls.
// Failed dials and network timeouts are retried with linear backoff.
func BuildHTTPClient(pollTimeout time.Duration) *http.Client {
	tr := netutil.NewTransport()
	// getUpdates holds the response back for the whole poll timeout.
	tr.ResponseHeaderTimeout = 0
	return &http.Client{
		Timeout:   pollTimeout + requestSlack,
		Transport: &retryTransport{next: tr, retries: retryAttempts, backoff: retryBackoff},
	}
}

type retryTransport struct {
	next    http.RoundTripper
	retries int
	backoff time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	for attempt := 1; attempt <= t.retries && err != nil && netutil.ShouldRetry(err); attempt++ {
		retry, cerr := rewind(req)
		if cerr != nil {
			return nil, err
		}

		wait := t.backoff * time.Duration(attempt)
		// The method name only; the URL path carries the bot token.
		logger.LogEvent(req.Context(), logger.TWire, slog.LevelWarn, "http.retry",
			slog.String("status", "retry"),
			slog.String("method", path.Base(req.URL.Path)),
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("err", logger.SanitizeLimit(netErrText(err), 256)),
		)
		if err := sleep(req.Context(), wait); err != nil {
			return nil, err
		}
		resp, err = t.next.RoundTrip(retry)
	}
	return resp, err
}

// rewind returns a copy of req with a fresh body, or an error when the body
// cannot be replayed.
func rewind(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("telegram: request body cannot be replayed")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, err
	}
	clone.Body = body
	return clone, nil
}

// netErrText drops the request URL from err; it carries the bot token.
func netErrText(err error) string {
	var ue *url.Error
	if errors.As(err, &ue) {
		return ue.Op + ": " + ue.Err.Error()
	}
	return err.Error()
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
