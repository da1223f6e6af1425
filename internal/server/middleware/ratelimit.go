package middleware

import (
	"net"
	"net/http"
	"time"

	"github.com/probmarket/ledger/internal/domain"
)

// RateLimit returns middleware that applies a per-client sliding-window rate
// limit. The key is the authenticated caller when present, otherwise the
// remote IP. A nil limiter or non-positive limit disables limiting.
func RateLimit(limiter domain.RateLimiter, rps int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil || rps <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := CallerFrom(r.Context())
			if key == "" {
				host, _, err := net.SplitHostPort(r.RemoteAddr)
				if err != nil {
					host = r.RemoteAddr
				}
				key = host
			}

			allowed, err := limiter.Allow(r.Context(), "api:"+key, rps, time.Second)
			if err != nil {
				// Fail open: a limiter outage must not take the ledger down.
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(http.StatusTooManyRequests)
				w.Write([]byte(`{"error":"rate limited"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
