package middlewares

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/igrejaconnect/campaign-service/pkg/response"
)

const bearerPrefix = "Bearer "

// secureCompare compares two strings in a way that is safer against timing attacks.
func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// BearerAuth guards a route group with a static bearer token. Session and
// user management live in the main CRM; this service only verifies that the
// caller presents the shared operator token.
func BearerAuth(token string) echo.MiddlewareFunc {
	// If the token is not configured, treat this as a server-side misconfiguration.
	if token == "" {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error {
				return response.InternalServerError(
					c,
					fmt.Errorf("API token is not configured for this endpoint group"),
				)
			}
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, bearerPrefix) {
				return response.Unauthorized(c)
			}

			presented := strings.TrimPrefix(header, bearerPrefix)
			if presented == "" || !secureCompare(presented, token) {
				return response.Unauthorized(c)
			}

			return next(c)
		}
	}
}
