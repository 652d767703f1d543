// Package listing talks to the marketplace backend: it publishes finished
// listings and reads the public listing feed.
package listing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/welgevonden/marketbot/core/logger"
	"github.com/welgevonden/marketbot/core/telegram/netutil"
)

// ErrBackendStatus marks a non-2xx backend response. Use errors.As with
// *StatusError to read the code.
var ErrBackendStatus = errors.New("listing: unexpected backend status")

// StatusError carries the HTTP status of a failed backend call.
type StatusError struct {
	Op   string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("listing: %s: status %d", e.Op, e.Code)
	}
	return fmt.Sprintf("listing: %s: status %d: %s", e.Op, e.Code, e.Body)
}

func (e *StatusError) Unwrap() error { return ErrBackendStatus }

// Listing is the create-listing payload. It has no photo field.
type Listing struct {
	UserTelegramID uint64 `json:"user_telegram_id"`
	Description    string `json:"description"`
}

// Entry is one listing in the feed.
type Entry struct {
	ID             int64  `json:"id"`
	UserTelegramID uint64 `json:"user_telegram_id"`
	Description    string `json:"description"`
}

const maxErrorBody = 256

// Client calls the backend once per operation; there are no retries.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for baseURL. A zero timeout means 10s.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return NewWithHTTPClient(baseURL, &http.Client{Timeout: timeout, Transport: netutil.NewTransport()})
}

// NewWithHTTPClient builds a client on an existing *http.Client.
func NewWithHTTPClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

// Submit posts l to /listing. Any 2xx is success and the body is ignored.
func (c *Client) Submit(ctx context.Context, l Listing) error {
	start := time.Now()
	body, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("listing: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/listing", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("listing: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log(ctx, slog.LevelWarn, "listing.submit", start, err, slog.Uint64("user_id", l.UserTelegramID))
		return fmt.Errorf("listing: submit: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("submit", resp); err != nil {
		c.log(ctx, slog.LevelWarn, "listing.submit", start, err, slog.Uint64("user_id", l.UserTelegramID))
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	c.log(ctx, slog.LevelInfo, "listing.submit", start, nil, slog.Uint64("user_id", l.UserTelegramID))
	return nil
}

// ListFeed fetches /listings.
func (c *Client) ListFeed(ctx context.Context) ([]Entry, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/listings", nil)
	if err != nil {
		return nil, fmt.Errorf("listing: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log(ctx, slog.LevelWarn, "listing.feed", start, err)
		return nil, fmt.Errorf("listing: feed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus("feed", resp); err != nil {
		c.log(ctx, slog.LevelWarn, "listing.feed", start, err)
		return nil, err
	}

	var entries []Entry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		c.log(ctx, slog.LevelWarn, "listing.feed", start, err)
		return nil, fmt.Errorf("listing: decode feed: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	c.log(ctx, slog.LevelDebug, "listing.feed", start, nil, slog.Int("count", len(entries)))
	return entries, nil
}

func checkStatus(op string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &StatusError{Op: op, Code: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
}

func (c *Client) log(ctx context.Context, level slog.Level, event string, start time.Time, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("status", logger.Status(err)),
		slog.Duration("took", logger.Took(start)),
	)
	if err != nil {
		attrs = append(attrs, slog.String("err", err.Error()))
		var se *StatusError
		if errors.As(err, &se) {
			attrs = append(attrs, slog.Int("err_code", se.Code))
		}
	}
	logger.LogEvent(ctx, logger.Listing, level, event, attrs...)
}
