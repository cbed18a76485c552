// Package ingest downloads schedule images from Telegram file storage
// and hands the bytes to a resource store. A transfer either fully
// replaces the stored image or leaves it untouched.
package ingest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"log/slog"

	"github.com/m3rciful/schedbot/core/logger"
	"github.com/m3rciful/schedbot/schedule"
)

// Resolver turns a Telegram file identifier into a fetchable URL.
type Resolver interface {
	ResolveURL(ctx context.Context, fileID string) (string, error)
}

// Sink receives the downloaded bytes. Both store backends satisfy it,
// so the record and its image cannot diverge.
type Sink interface {
	AttachImage(ctx context.Context, name, ext string, src io.Reader) (schedule.Resource, error)
}

// FetchError reports a failure on the download side: resolving the file,
// performing the request, or a non-success status.
type FetchError struct {
	FileID string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("ingest: fetch %s: unexpected status %d", e.FileID, e.Status)
	}
	return fmt.Sprintf("ingest: fetch %s: %v", e.FileID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// WriteError reports a failure on the sink side after a successful fetch.
type WriteError struct {
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("ingest: write %s: %v", e.Name, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Request names one transfer: which resource receives which file.
type Request struct {
	Name   string
	FileID string
}

// Result is delivered exactly once per request. Err is nil on success,
// a *FetchError or *WriteError otherwise.
type Result struct {
	Request  Request
	Resource schedule.Resource
	Err      error
	Took     time.Duration
}

// Pipeline runs transfers. It never retries; the operator resends the
// photo if a transfer fails.
type Pipeline struct {
	client   *http.Client
	resolver Resolver
	timeout  time.Duration
}

// New builds a pipeline. A nil client falls back to http.DefaultClient;
// a zero timeout disables the per-transfer deadline.
func New(client *http.Client, resolver Resolver, timeout time.Duration) *Pipeline {
	if client == nil {
		client = http.DefaultClient
	}
	return &Pipeline{client: client, resolver: resolver, timeout: timeout}
}

// Start launches the transfer and invokes done with the settled result.
// done runs on the pipeline goroutine; callers that need ordering must
// re-enter their own serializer from it.
func (p *Pipeline) Start(ctx context.Context, req Request, sink Sink, done func(Result)) {
	go func() {
		start := time.Now()
		res, err := p.run(ctx, req, sink)
		out := Result{Request: req, Resource: res, Err: err, Took: time.Since(start)}
		if err != nil {
			logger.SVCSchedule.Warn("ingest failed",
				slog.String("event", "ingest.fail"),
				slog.String("name", req.Name),
				slog.String("error", err.Error()),
				slog.Duration("duration", logger.RoundMS(out.Took)),
			)
		} else {
			logger.SVCSchedule.Info("ingest done",
				slog.String("event", "ingest.done"),
				slog.String("name", res.Name),
				slog.String("key", res.ImageKey),
				slog.Duration("duration", logger.RoundMS(out.Took)),
			)
		}
		done(out)
	}()
}

func (p *Pipeline) run(ctx context.Context, req Request, sink Sink) (schedule.Resource, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	url, err := p.resolver.ResolveURL(ctx, req.FileID)
	if err != nil {
		return schedule.Resource{}, &FetchError{FileID: req.FileID, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return schedule.Resource{}, &FetchError{FileID: req.FileID, Err: err}
	}
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return schedule.Resource{}, &FetchError{FileID: req.FileID, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return schedule.Resource{}, &FetchError{FileID: req.FileID, Status: resp.StatusCode}
	}

	res, err := sink.AttachImage(ctx, req.Name, extFromURL(url), resp.Body)
	if err != nil {
		return schedule.Resource{}, &WriteError{Name: req.Name, Err: err}
	}
	return res, nil
}

// extFromURL picks the stored extension from the download path.
func extFromURL(url string) string {
	ext := strings.ToLower(path.Ext(url))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return schedule.DefaultImageExt
	}
}
