package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http" // HTTP status codes for responses
	"strings"  // string utilities for prefix checking and trimming

	"github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
	"github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the token's subject, wallet address and role claims into the
// request context.  The provided secret must match the one used when
// issuing tokens.  This middleware should wrap protected routes so that
// handlers can read the authenticated identity via `c.Get("user_id")`,
// `c.Get("address")` and `c.Get("role")`.  The address claim is the
// caller's on-ledger identity: every vault, account and heir endpoint
// derives its authorization from it.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			// A valid header starts with "Bearer " followed by the JWT.
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			// Parse with HS256 and our secret; the callback rejects any
			// token signed with a different algorithm.
			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			claims, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			// A token without a wallet address cannot drive any vault
			// operation, so treat it as unauthorized outright.
			addr, _ := claims["addr"].(string)
			if addr == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token missing address claim"})
			}

			c.Set("user_id", claims["sub"])
			c.Set("address", addr)
			c.Set("role", claims["role"])
			return next(c)
		}
	}
}
