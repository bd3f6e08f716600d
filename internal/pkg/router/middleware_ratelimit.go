package router

import (
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const rateLimitIdle = 10 * time.Minute

// RateLimit allows perSecond requests per socket peer with the given burst.
// Proxy headers are ignored so a client cannot pick its own bucket. A bucket is
// dropped after ten idle minutes. A non-positive perSecond disables limiting.
func RateLimit(perSecond float64, burst int) Middleware {
	if perSecond <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	burst = max(burst, 1)

	buckets := cache.New(rateLimitIdle, rateLimitIdle/2)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			peer := peerIP(r)

			var lim *rate.Limiter
			if v, ok := buckets.Get(peer); ok {
				lim = v.(*rate.Limiter)
			} else {
				lim = rate.NewLimiter(rate.Limit(perSecond), burst)
			}
			buckets.SetDefault(peer, lim)

			if !lim.Allow() {
				w.Header().Set("Retry-After", "1")
				writeJSON(w, map[string]string{"message": "Too many requests"}, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
