// Package metrics holds the bot's prometheus collectors and the optional
// /metrics listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/welgevonden/marketbot/core/logger"
)

// Collectors groups every metric the bot records.
type Collectors struct {
	Registry *prometheus.Registry

	Updates           *prometheus.CounterVec
	HandlerDuration   *prometheus.HistogramVec
	Transitions       *prometheus.CounterVec
	Submissions       *prometheus.CounterVec
	TransportFailures *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	ActiveLanes       prometheus.GaugeFunc
}

// New registers the collectors on a fresh registry. lanes reports the number
// of conversations with pending work; nil reports zero.
func New(lanes func() int) *Collectors {
	if lanes == nil {
		lanes = func() int { return 0 }
	}
	c := &Collectors{
		Registry: prometheus.NewRegistry(),
		Updates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbot_updates_total",
				Help: "Count of received updates",
			},
			[]string{"kind"},
		),
		HandlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketbot_handler_duration_seconds",
				Help:    "Time taken to process an update",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"handler"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbot_transitions_total",
				Help: "Count of dialogue transitions",
			},
			[]string{"from", "to"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbot_submissions_total",
				Help: "Count of listing submissions to the backend",
			},
			[]string{"outcome"},
		),
		TransportFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbot_transport_failures_total",
				Help: "Count of failed Telegram API calls",
			},
			[]string{"op"},
		),
		MessagesSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketbot_messages_sent_total",
				Help: "Count of sent messages",
			},
			[]string{"markup"},
		),
	}
	c.ActiveLanes = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "marketbot_active_conversations",
			Help: "Conversations with queued or running updates",
		},
		func() float64 { return float64(lanes()) },
	)
	c.Registry.MustRegister(
		c.Updates,
		c.HandlerDuration,
		c.Transitions,
		c.Submissions,
		c.TransportFailures,
		c.MessagesSent,
		c.ActiveLanes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Handler exposes the registry in the prometheus text format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{Registry: c.Registry})
}

// Serve runs a /metrics listener on addr until ctx is done. An empty addr
// disables the listener.
func (c *Collectors) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "tg", "metrics.listen", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
