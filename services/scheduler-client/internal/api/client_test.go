package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

type item struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestClientRoundTrip(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotType string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(item{ID: "1", Name: "x"})
	}))
	defer srv.Close()

	c, err := NewClient(srv.URL+"/api/", nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	var out item
	q := url.Values{}
	q.Set("limit", "5")
	if err := c.Get(context.Background(), "/slots", q, &out); err != nil {
		t.Fatalf("get: %v", err)
	}
	if gotMethod != http.MethodGet || gotPath != "/api/slots" || gotQuery != "limit=5" {
		t.Fatalf("unexpected request %s %s?%s", gotMethod, gotPath, gotQuery)
	}
	if gotType != "" {
		t.Fatalf("get should not send content type, got %q", gotType)
	}
	if out.Name != "x" {
		t.Fatalf("decode failed: %+v", out)
	}

	if err := c.Post(context.Background(), "/slots", item{Name: "new"}, &out); err != nil {
		t.Fatalf("post: %v", err)
	}
	if gotType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotType)
	}
	var sent item
	if err := json.Unmarshal(gotBody, &sent); err != nil || sent.Name != "new" {
		t.Fatalf("unexpected body %s", gotBody)
	}
}

func TestClientNoContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c, _ := NewClient(srv.URL, nil)
	if err := c.Delete(context.Background(), "/slots/abc"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var out item
	if err := c.Get(context.Background(), "/empty", nil, &out); err != nil {
		t.Fatalf("no content into out: %v", err)
	}
}

func TestClientStatusError(t *testing.T) {
	cases := map[string]struct {
		body   string
		detail string
	}{
		"string detail": {body: `{"detail":"Slot is full"}`, detail: "Slot is full"},
		"list detail":   {body: `{"detail":[{"loc":["body","email"],"msg":"value is not a valid email"}]}`, detail: "email: value is not a valid email"},
		"no detail":     {body: `{"error":"x"}`, detail: ""},
		"not json":      {body: `<html>oops</html>`, detail: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			c, _ := NewClient(srv.URL, nil)
			err := c.Get(context.Background(), "/x", nil, nil)
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected status error, got %v", err)
			}
			if se.Status != http.StatusBadRequest || se.Detail != tc.detail {
				t.Fatalf("unexpected status error %+v", se)
			}
		})
	}
}

func TestNewClientRejectsBadURL(t *testing.T) {
	for _, raw := range []string{"", "localhost:8000", "ftp://x/api", "://"} {
		if _, err := NewClient(raw, nil); err == nil {
			t.Fatalf("expected error for %q", raw)
		}
	}
}

func TestMapper(t *testing.T) {
	m := Mapper{
		Messages: map[int]string{
			http.StatusNotFound:            "Slot not found",
			http.StatusForbidden:           MsgNotAuthorized,
			http.StatusInternalServerError: MsgServerError,
		},
		BadRequest: "Invalid request",
	}

	cases := []struct {
		name     string
		in       error
		status   int
		message  string
		sentinel error
	}{
		{"not found", &StatusError{Status: 404, Detail: "gone"}, 404, "Slot not found", ErrNotFound},
		{"forbidden", &StatusError{Status: 403}, 403, MsgNotAuthorized, ErrForbidden},
		{"bad request detail", &StatusError{Status: 400, Detail: "end before start"}, 400, "end before start", ErrBadRequest},
		{"bad request default", &StatusError{Status: 400}, 400, "Invalid request", ErrBadRequest},
		{"server", &StatusError{Status: 500, Detail: "trace"}, 500, MsgServerError, ErrServer},
		{"other with detail", &StatusError{Status: 418, Detail: "teapot"}, 418, "teapot", nil},
		{"other without detail", &StatusError{Status: 502}, 502, "Error Code: 502", ErrServer},
		{"client side", errors.New("dial tcp: connection refused"), 0, "dial tcp: connection refused", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := m.Map(tc.in)
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if e.Status != tc.status || e.Message != tc.message {
				t.Fatalf("got status=%d message=%q", e.Status, e.Message)
			}
			if err.Error() != tc.message {
				t.Fatalf("Error() = %q", err.Error())
			}
			if tc.sentinel != nil && !errors.Is(err, tc.sentinel) {
				t.Fatalf("expected errors.Is %v", tc.sentinel)
			}
			if !errors.Is(err, tc.in) {
				t.Fatalf("mapped error should wrap the original")
			}
		})
	}

	if m.Map(nil) != nil {
		t.Fatalf("nil should map to nil")
	}
	already := &Error{Status: 404, Message: "keep"}
	if got := m.Map(already); got != already {
		t.Fatalf("mapped errors should pass through")
	}
}

func TestMapperKeepsContextErrors(t *testing.T) {
	err := Mapper{}.Map(&url.Error{Op: "Get", URL: "http://x", Err: context.Canceled})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled in chain, got %v", err)
	}
}

func TestQueryHelpers(t *testing.T) {
	q := url.Values{}
	SetInt(q, "skip", nil)
	SetBool(q, "available_only", nil)
	SetTime(q, "start_date", nil)
	if len(q) != 0 {
		t.Fatalf("nil values must not be encoded: %v", q)
	}

	skip, avail := 10, false
	start := time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("x", 2*3600))
	SetInt(q, "skip", &skip)
	SetBool(q, "available_only", &avail)
	SetTime(q, "start_date", &start)
	if q.Get("skip") != "10" || q.Get("available_only") != "false" {
		t.Fatalf("unexpected query %v", q)
	}
	if q.Get("start_date") != "2026-03-01T07:30:00Z" {
		t.Fatalf("expected utc timestamp, got %q", q.Get("start_date"))
	}
}

func TestResourceID(t *testing.T) {
	id, err := ResourceID("6F9619FF-8B86-D011-B42D-00CF4FC964FF")
	if err != nil {
		t.Fatalf("valid id rejected: %v", err)
	}
	if id != "6f9619ff-8b86-d011-b42d-00cf4fc964ff" {
		t.Fatalf("expected canonical id, got %q", id)
	}
	for _, bad := range []string{"", "42", "../admin", "6f9619ff-8b86-d011-b42d"} {
		if _, err := ResourceID(bad); !errors.Is(err, ErrInvalidID) {
			t.Fatalf("expected ErrInvalidID for %q, got %v", bad, err)
		}
	}
}
