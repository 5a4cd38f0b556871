package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	ierr "github.com/hallmail/hallmail/internal/errors"
	"github.com/hallmail/hallmail/internal/types"
	goCache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// UserRateLimit throttles an authenticated route per user. Idle limiters
// expire after ten minutes.
func UserRateLimit(perMinute int, burst int) gin.HandlerFunc {
	if perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}
	if burst <= 0 {
		burst = 1
	}

	limiters := goCache.New(10*time.Minute, 20*time.Minute)
	every := rate.Every(time.Minute / time.Duration(perMinute))
	retryAfter := retryAfterSeconds(perMinute)

	return func(c *gin.Context) {
		userID := types.GetUserID(c.Request.Context())
		if userID == "" {
			c.Next()
			return
		}

		var limiter *rate.Limiter
		if v, ok := limiters.Get(userID); ok {
			limiter = v.(*rate.Limiter)
		} else {
			limiter = rate.NewLimiter(every, burst)
			if err := limiters.Add(userID, limiter, goCache.DefaultExpiration); err != nil {
				// lost the race, use the stored one
				if v, ok := limiters.Get(userID); ok {
					limiter = v.(*rate.Limiter)
				}
			}
		}
		limiters.SetDefault(userID, limiter)

		if !limiter.Allow() {
			c.Error(ierr.NewError("rate limited").
				WithHint("Too many sync requests, please wait a moment").
				WithReportableDetails(map[string]any{"retry_after_seconds": retryAfter}).
				Mark(ierr.ErrTooManyRequests))
			c.Abort()
			return
		}
		c.Next()
	}
}

// retryAfterSeconds is the refill interval of one token, rounded up to a
// whole second so clients never retry before a token is available.
func retryAfterSeconds(perMinute int) int {
	return max(1, (60+perMinute-1)/perMinute)
}
