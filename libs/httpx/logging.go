package httpx

import (
	"log/slog"
	"net/http"
	"time"
)

func WithAccessLog(logger *slog.Logger) Middleware {
	return func(next http.RoundTripper) http.RoundTripper {
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.RoundTrip(r)

			attrs := []any{
				"request_id", r.Header.Get(RequestIDHeader),
				"method", r.Method,
				"path", r.URL.Path,
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if err != nil {
				logger.Warn("http request failed", append(attrs, "err", err)...)
				return resp, err
			}
			attrs = append(attrs, "status", resp.StatusCode)
			if resp.StatusCode >= http.StatusInternalServerError {
				logger.Warn("http request", attrs...)
			} else {
				logger.Debug("http request", attrs...)
			}
			return resp, nil
		})
	}
}
