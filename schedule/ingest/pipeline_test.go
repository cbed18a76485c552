package ingest

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/m3rciful/schedbot/schedule"
)

type staticResolver struct {
	url string
	err error
}

func (r staticResolver) ResolveURL(ctx context.Context, fileID string) (string, error) {
	return r.url, r.err
}

type captureSink struct {
	name string
	ext  string
	data []byte
	err  error
}

func (s *captureSink) AttachImage(ctx context.Context, name, ext string, src io.Reader) (schedule.Resource, error) {
	s.name, s.ext = name, ext
	data, err := io.ReadAll(src)
	if err != nil {
		return schedule.Resource{}, err
	}
	s.data = data
	if s.err != nil {
		return schedule.Resource{}, s.err
	}
	return schedule.Resource{Name: name, ImageKey: name + ext}, nil
}

func wait(t *testing.T, ch <-chan Result) Result {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ingest result")
		return Result{}
	}
}

func TestPipelineSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("image-bytes"))
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := New(srv.Client(), staticResolver{url: srv.URL + "/file/photo.png"}, time.Second)

	ch := make(chan Result, 1)
	p.Start(context.Background(), Request{Name: "5A", FileID: "f1"}, sink, func(r Result) { ch <- r })

	res := wait(t, ch)
	if res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if res.Resource.ImageKey != "5A.png" {
		t.Fatalf("expected image key from URL extension, got %q", res.Resource.ImageKey)
	}
	if string(sink.data) != "image-bytes" {
		t.Fatalf("sink received %q", sink.data)
	}
}

func TestPipelineDefaultExtension(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := New(srv.Client(), staticResolver{url: srv.URL + "/file/blob"}, time.Second)

	ch := make(chan Result, 1)
	p.Start(context.Background(), Request{Name: "5A", FileID: "f1"}, sink, func(r Result) { ch <- r })

	if res := wait(t, ch); res.Err != nil {
		t.Fatalf("unexpected error: %v", res.Err)
	}
	if sink.ext != schedule.DefaultImageExt {
		t.Fatalf("expected default extension, got %q", sink.ext)
	}
}

func TestPipelineFetchErrorOnStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sink := &captureSink{}
	p := New(srv.Client(), staticResolver{url: srv.URL}, time.Second)

	ch := make(chan Result, 1)
	p.Start(context.Background(), Request{Name: "5A", FileID: "f1"}, sink, func(r Result) { ch <- r })

	res := wait(t, ch)
	var fe *FetchError
	if !errors.As(res.Err, &fe) {
		t.Fatalf("expected FetchError, got %v", res.Err)
	}
	if fe.Status != http.StatusNotFound {
		t.Fatalf("expected status 404 in error, got %d", fe.Status)
	}
	if sink.data != nil {
		t.Fatalf("sink must not be touched on fetch failure")
	}
}

func TestPipelineFetchErrorOnResolve(t *testing.T) {
	sink := &captureSink{}
	p := New(nil, staticResolver{err: errors.New("no such file")}, time.Second)

	ch := make(chan Result, 1)
	p.Start(context.Background(), Request{Name: "5A", FileID: "f1"}, sink, func(r Result) { ch <- r })

	res := wait(t, ch)
	var fe *FetchError
	if !errors.As(res.Err, &fe) {
		t.Fatalf("expected FetchError, got %v", res.Err)
	}
}

func TestPipelineWriteError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("x"))
	}))
	defer srv.Close()

	sink := &captureSink{err: schedule.ErrNotFound}
	p := New(srv.Client(), staticResolver{url: srv.URL}, time.Second)

	ch := make(chan Result, 1)
	p.Start(context.Background(), Request{Name: "5A", FileID: "f1"}, sink, func(r Result) { ch <- r })

	res := wait(t, ch)
	var we *WriteError
	if !errors.As(res.Err, &we) {
		t.Fatalf("expected WriteError, got %v", res.Err)
	}
	if !errors.Is(res.Err, schedule.ErrNotFound) {
		t.Fatalf("write error must unwrap to the sink error, got %v", res.Err)
	}
}
