// Package netutil holds the HTTP plumbing shared by the Telegram client and
// the listing backend client.
package netutil

import (
	"context"
	"errors"
	"net"
)

// ShouldRetry reports whether err is a transient transport failure: a
// failed dial or a network timeout. Cancellation and deadlines set by the
// caller are final.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
