package httpclient

import (
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"EncounterSync/internal/interfaces"

	"github.com/sirupsen/logrus"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestGetJSONDecodesGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Client-Id") != "abc" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		_, _ = gz.Write([]byte(`{"name":"guardian"}`))
		_ = gz.Close()
	}))
	defer srv.Close()

	c := New("test", "", 5, quietLogger())
	var out struct {
		Name string `json:"name"`
	}
	err := c.GetJSON(context.Background(), srv.URL, http.Header{"Client-Id": {"abc"}}, &out)
	if err != nil {
		t.Fatalf("GetJSON: %v", err)
	}
	if out.Name != "guardian" {
		t.Fatalf("unexpected body %+v", out)
	}
}

func TestGetJSONMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"name":`))
	}))
	defer srv.Close()

	var out map[string]interface{}
	err := New("test", "", 5, quietLogger()).GetJSON(context.Background(), srv.URL, nil, &out)
	if !errors.Is(err, interfaces.ErrMalformedResponse) {
		t.Fatalf("expected malformed response, got %v", err)
	}
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New("flaky", "", 5, quietLogger())
	var out struct{}
	for i := 0; i < breakerFailures; i++ {
		err := c.GetJSON(context.Background(), srv.URL, nil, &out)
		if !errors.Is(err, interfaces.ErrUpstreamUnavailable) {
			t.Fatalf("call %d: expected upstream unavailable, got %v", i, err)
		}
	}
	err := c.GetJSON(context.Background(), srv.URL, nil, &out)
	if !errors.Is(err, interfaces.ErrUpstreamUnavailable) {
		t.Fatalf("open breaker should report upstream unavailable, got %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != breakerFailures {
		t.Fatalf("open breaker must not reach the server, hits=%d", got)
	}
	if c.State() != "open" {
		t.Fatalf("expected open state, got %s", c.State())
	}
}

func TestClientErrorsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("strict", "", 5, quietLogger())
	var out struct{}
	for i := 0; i < breakerFailures+2; i++ {
		err := c.GetJSON(context.Background(), srv.URL, nil, &out)
		var se *StatusError
		if !errors.As(err, &se) || se.Code != http.StatusNotFound {
			t.Fatalf("expected 404 status error, got %v", err)
		}
		if errors.Is(err, interfaces.ErrUpstreamUnavailable) {
			t.Fatalf("404 is not an upstream outage")
		}
	}
	if c.State() != "closed" {
		t.Fatalf("breaker should stay closed, got %s", c.State())
	}
}
