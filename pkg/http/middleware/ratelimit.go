package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// KeyLimiter reports whether one more request for key may proceed.
type KeyLimiter interface {
	Allow(key string) bool
}

// RateLimit rejects callers that exceed their per-IP allowance with 429.
func RateLimit(lim KeyLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !lim.Allow(c.RealIP()) {
				return c.JSON(http.StatusTooManyRequests, map[string]interface{}{
					"success": false,
					"error":   "too many requests",
				})
			}
			return next(c)
		}
	}
}
