package httpx

import "net/http"

// Middleware decorates an outgoing transport.
type Middleware func(http.RoundTripper) http.RoundTripper

// RoundTripperFunc adapts a function to http.RoundTripper.
type RoundTripperFunc func(*http.Request) (*http.Response, error)

func (f RoundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

// Chain wraps rt so that Chain(rt, a, b) sends requests through a, then b,
// then rt. A nil rt means http.DefaultTransport; nil middlewares are skipped.
func Chain(rt http.RoundTripper, m ...Middleware) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	for i := len(m) - 1; i >= 0; i-- {
		if m[i] == nil {
			continue
		}
		rt = m[i](rt)
	}
	return rt
}
