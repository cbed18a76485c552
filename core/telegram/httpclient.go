package telegram

import (
	"net"
	"net/http"
	"time"

	"github.com/m3rciful/schedbot/core/telegram/netutil"
)

const (
	dialTimeout      = 5 * time.Second
	tlsTimeout       = 5 * time.Second
	idleConnTimeout  = 30 * time.Second
	responseTimeout  = 5 * time.Second
	clientTimeout    = 30 * time.Second
	retryAttempts    = 3
	retryBackoffStep = 2 * time.Second
)

// BuildHTTPClient returns the client both bot polling and image fetches
// share: a tuned transport wrapped in transparent retries for transient
// network failures.
func BuildHTTPClient() *http.Client {
	return &http.Client{
		Timeout: clientTimeout,
		Transport: &retryTransport{
			base: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				DialContext:           (&net.Dialer{Timeout: dialTimeout, KeepAlive: 30 * time.Second}).DialContext,
				ForceAttemptHTTP2:     true,
				MaxIdleConns:          100,
				MaxIdleConnsPerHost:   10,
				IdleConnTimeout:       idleConnTimeout,
				TLSHandshakeTimeout:   tlsTimeout,
				ResponseHeaderTimeout: responseTimeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
			attempts: retryAttempts + 1,
			backoff:  retryBackoffStep,
		},
	}
}

// retryTransport repeats requests that failed with an error netutil
// classifies as transient. Backoff grows linearly with the attempt and
// honors request context cancellation.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	backoff  time.Duration
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}

	var lastErr error
	for attempt := 1; attempt <= t.attempts; attempt++ {
		cur, err := t.requestFor(req, attempt)
		if err != nil {
			if lastErr != nil {
				return nil, lastErr
			}
			return nil, err
		}

		resp, err := base.RoundTrip(cur)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !netutil.ShouldRetry(err) || attempt == t.attempts {
			break
		}
		if err := t.sleep(req, attempt); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// requestFor returns the request to send on this attempt. Replays clone
// the original and rewind the body; a consumed body without GetBody
// cannot be replayed.
func (t *retryTransport) requestFor(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	clone := req.Clone(req.Context())
	switch {
	case req.GetBody != nil:
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	case req.Body != nil:
		return nil, http.ErrBodyReadAfterClose
	}
	return clone, nil
}

func (t *retryTransport) sleep(req *http.Request, attempt int) error {
	delay := t.backoff * time.Duration(attempt)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
