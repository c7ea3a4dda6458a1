package server

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/tjfontaine/autoclean-api/internal/config"
	"github.com/tjfontaine/autoclean-api/internal/domain"
)

// RateLimitMessage is the failure message for throttled requests.
const RateLimitMessage = "Too many requests"

// RateLimit returns a stage sharing one token bucket across every route it
// wraps. Throttled requests fail with a 429 through the error stage.
func RateLimit(limit rate.Limit, burst int) Stage {
	limiter := rate.NewLimiter(limit, burst)
	return func(next HandlerFunc) HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) error {
			res := limiter.Reserve()
			if !res.OK() {
				return domain.ErrRateLimit(RateLimitMessage)
			}
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", retryAfter(delay))
				return domain.ErrRateLimit(RateLimitMessage)
			}
			return next(w, r)
		}
	}
}

// RateLimitFromConfig returns nil when rate limiting is disabled.
func RateLimitFromConfig(cfg config.RateLimitConfig) Stage {
	if !cfg.Enabled {
		return nil
	}
	return RateLimit(rate.Limit(cfg.RequestsPerSecond), cfg.Burst)
}

func retryAfter(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}
