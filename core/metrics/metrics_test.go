package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, c *Collectors) string {
	t.Helper()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}

func TestCollectorsRecord(t *testing.T) {
	c := New(func() int { return 3 })

	c.Updates.WithLabelValues("text").Inc()
	c.Updates.WithLabelValues("text").Inc()
	c.Transitions.WithLabelValues("menu", "buy_and_sell").Inc()
	c.Submissions.WithLabelValues("fail").Inc()

	body := scrape(t, c)
	require.Contains(t, body, `marketbot_updates_total{kind="text"} 2`)
	require.Contains(t, body, `marketbot_transitions_total{from="menu",to="buy_and_sell"} 1`)
	require.Contains(t, body, `marketbot_submissions_total{outcome="fail"} 1`)
	require.Contains(t, body, "marketbot_active_conversations 3")
}

func TestHandlerWithoutLaneSource(t *testing.T) {
	c := New(nil)
	c.MessagesSent.WithLabelValues("reply").Inc()

	body := scrape(t, c)
	require.Contains(t, body, `marketbot_messages_sent_total{markup="reply"} 1`)
	require.Contains(t, body, "marketbot_active_conversations 0")
}

func TestServeDisabledWithoutAddr(t *testing.T) {
	c := New(nil)
	require.NoError(t, c.Serve(context.Background(), ""))
}
