// Package netutil classifies transport errors seen while talking to the
// Telegram API so the sender can decide whether a retry makes sense.
package netutil

import (
	"errors"
	"net"
	"net/url"
)

// ShouldRetry reports whether err looks transient: timeouts, failed
// dials and flaky DNS answers qualify, everything else does not.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		// Unwrap and classify whatever the transport put inside.
		if inner := urlErr.Err; inner != nil && !errors.Is(inner, err) {
			return ShouldRetry(inner)
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsTimeout || dnsErr.IsTemporary
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && (opErr.Timeout() || opErr.Op == "dial") {
		return true
	}

	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
