package middleware

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/tumainiaid/reporting-api/pkg/errors"
	"github.com/tumainiaid/reporting-api/pkg/ratelimit"
	"github.com/tumainiaid/reporting-api/pkg/response"
)

type rateLimitObserver interface {
	ObserveRateLimitDenied(namespace string)
}

// RateLimit throttles requests per authenticated user (falling back to
// client IP) within the given namespace. Denied requests receive a 429
// with a Retry-After header.
func RateLimit(store *ratelimit.Store, cfg ratelimit.Config, namespace string, observer rateLimitObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if store == nil {
			c.Next()
			return
		}

		id := c.ClientIP()
		if claims, ok := CurrentClaims(c); ok {
			id = claims.UserID
		}

		result := store.Check(ratelimit.Key(namespace, id), cfg)
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		if !result.Allowed {
			retryAfter := int(result.RetryAfter / time.Second)
			if result.RetryAfter%time.Second != 0 {
				retryAfter++
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			if observer != nil {
				observer.ObserveRateLimitDenied(namespace)
			}
			response.Error(c, appErrors.Clone(appErrors.ErrRateLimited,
				fmt.Sprintf("rate limit exceeded, retry in %ds", retryAfter)))
			c.Abort()
			return
		}
		c.Next()
	}
}
