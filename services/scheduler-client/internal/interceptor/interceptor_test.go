package interceptor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/md-rashed-zaman/slotscheduler/libs/httpx"
)

func client(tokens TokenSource, logout LogoutFunc) *http.Client {
	return &http.Client{Transport: httpx.Chain(nil, New(tokens, logout))}
}

func TestAddsBearerWhenTokenPresent(t *testing.T) {
	var auth, ctype string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		ctype = r.Header.Get("Content-Type")
	}))
	defer srv.Close()

	c := client(TokenFunc(func(context.Context) string { return "abc.def.ghi" }), nil)
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/slots", nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if auth != "Bearer abc.def.ghi" {
		t.Fatalf("unexpected authorization %q", auth)
	}
	if ctype != "application/json" {
		t.Fatalf("unexpected content type %q", ctype)
	}
	if req.Header.Get("Authorization") != "" {
		t.Fatalf("caller request must not be mutated")
	}
}

func TestNoHeaderWithoutToken(t *testing.T) {
	var auth []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Values("Authorization")
	}))
	defer srv.Close()

	c := client(TokenFunc(func(context.Context) string { return "" }), nil)
	resp, err := c.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if len(auth) != 0 {
		t.Fatalf("expected no authorization header, got %v", auth)
	}
}

func TestLogoutOncePer401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/denied") {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Could not validate credentials"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	var calls atomic.Int32
	c := client(TokenFunc(func(context.Context) string { return "t" }), func(ctx context.Context) {
		if ctx.Err() != nil {
			t.Errorf("logout context should not be cancelled")
		}
		calls.Add(1)
	})

	resp, err := c.Get(srv.URL + "/denied")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("401 must reach the caller, got %d", resp.StatusCode)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one logout, got %d", calls.Load())
	}

	resp, err = c.Get(srv.URL + "/other")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if calls.Load() != 1 {
		t.Fatalf("403 must not log out, got %d calls", calls.Load())
	}
}

func TestTransportErrorPassesThrough(t *testing.T) {
	boom := errors.New("boom")
	var calls int
	rt := httpx.Chain(
		httpx.RoundTripperFunc(func(*http.Request) (*http.Response, error) { return nil, boom }),
		New(TokenFunc(func(context.Context) string { return "t" }), func(context.Context) { calls++ }),
	)
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("transport errors must not log out")
	}
}
