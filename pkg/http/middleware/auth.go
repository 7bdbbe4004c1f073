package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"MarketCast/pkg/logger"

	"github.com/labstack/echo/v4"
)

// BearerAuth admits requests whose Authorization header is exactly
// "Bearer <secret>". secret is read per request so rotation needs no restart.
// An empty secret is a deployment error and fails every request with 500.
func BearerAuth(secret func() string, l *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			want := secret()
			if want == "" {
				l.Error("trigger secret is not configured", logger.String("route", routeLabel(c)))
				return c.JSON(http.StatusInternalServerError, map[string]interface{}{
					"success":    false,
					"error":      "trigger secret not configured",
					"error_kind": "configuration_failure",
				})
			}
			got, ok := strings.CutPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
				l.Warn("unauthorized trigger", logger.String("route", routeLabel(c)), logger.String("remote", c.RealIP()))
				return c.JSON(http.StatusUnauthorized, map[string]interface{}{
					"success": false,
					"error":   "unauthorized",
				})
			}
			return next(c)
		}
	}
}
