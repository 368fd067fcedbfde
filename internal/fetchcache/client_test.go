package fetchcache

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFetchBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("expected a browser user agent, got %q", ua)
		}
		if accept := r.Header.Get("Accept"); accept == "" {
			t.Error("expected an Accept header")
		}
		io.WriteString(w, "hello")
	}))
	defer srv.Close()

	body, err := FetchBody(context.Background(), NewHTTPClient(5*time.Second), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) != "hello" {
		t.Errorf("unexpected body: %q", body)
	}
}

func TestFetchBodyNon2xx(t *testing.T) {
	for _, status := range []int{http.StatusForbidden, http.StatusNotFound, http.StatusBadGateway} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(status)
		}))

		_, err := FetchBody(context.Background(), NewHTTPClient(5*time.Second), srv.URL)
		if err == nil {
			t.Errorf("status %d: expected an error", status)
		}
		srv.Close()
	}
}

func TestFetchBodyCapsSize(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		chunk := strings.Repeat("a", 1<<20)
		for i := 0; i < 6; i++ {
			io.WriteString(w, chunk)
		}
	}))
	defer srv.Close()

	body, err := FetchBody(context.Background(), NewHTTPClient(10*time.Second), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) > maxBodySize {
		t.Errorf("body should be capped at %d bytes, got %d", maxBodySize, len(body))
	}
}

func TestFetchBodyContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "never seen")
	}))
	defer srv.Close()

	if _, err := FetchBody(ctx, NewHTTPClient(5*time.Second), srv.URL); err == nil {
		t.Error("expected an error for a cancelled context")
	}
}
