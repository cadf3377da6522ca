package middleware

// identity.go defines helpers for reading the authenticated identity that
// JWTAuth stored in the Echo context.  Handlers use CallerAddress to learn
// which wallet address a request acts for; the rate limiter uses the same
// context keys to build per-user buckets.

import "github.com/labstack/echo/v4"

// CallerAddress returns the wallet address bound to the request's access
// token, or "" when the request is unauthenticated.  Vault handlers treat
// this value as the caller identity for every owner and heir check.
func CallerAddress(c echo.Context) string {
	if v := c.Get("address"); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
