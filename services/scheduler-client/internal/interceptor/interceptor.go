// Package interceptor attaches the session bearer token to outgoing API
// requests and forces a logout when the API answers 401.
package interceptor

import (
	"context"
	"net/http"

	"github.com/md-rashed-zaman/slotscheduler/libs/httpx"
)

// TokenSource returns the current bearer token, or "" when logged out.
type TokenSource interface {
	Token(ctx context.Context) string
}

type TokenFunc func(ctx context.Context) string

func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// LogoutFunc is invoked once per 401 response.
type LogoutFunc func(ctx context.Context)

// New returns the middleware. A nil logout disables the 401 hook.
func New(tokens TokenSource, logout LogoutFunc) httpx.Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return httpx.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if token := tokens.Token(r.Context()); token != "" {
				r = r.Clone(r.Context())
				r.Header.Set("Authorization", "Bearer "+token)
				r.Header.Set("Content-Type", "application/json")
			}

			resp, err := next.RoundTrip(r)
			if err != nil {
				return resp, err
			}
			if resp.StatusCode == http.StatusUnauthorized && logout != nil {
				// logout must finish even if the request context is cancelled
				logout(context.WithoutCancel(r.Context()))
			}
			return resp, nil
		})
	}
}
