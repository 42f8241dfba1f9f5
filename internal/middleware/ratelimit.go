package middleware

import (
	"net/http"

	"github.com/bilal-chajia/freecipies-blog-sub007/internal/logging"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/metrics"
	"github.com/bilal-chajia/freecipies-blog-sub007/internal/ratelimit"
)

// RateLimit returns middleware that rejects clients exceeding their request
// budget with 429. A nil limiter disables limiting. Store errors fail open
// so a broken backend does not take the API down with it.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := getClientIP(r)

			ok, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				logging.Warn("Rate limit store error for %s: %v", sanitizeLogField(ip), err)
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				metrics.HTTPRateLimited.Inc()
				writeAuthError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
