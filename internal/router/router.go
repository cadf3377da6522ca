package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // the Echo web framework handles routing
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/legacy-vault/internal/config"     // cache and rate-limit settings
	"github.com/iliyamo/legacy-vault/internal/handler"    // the handlers that implement business logic
	"github.com/iliyamo/legacy-vault/internal/middleware" // JWT authentication and role enforcement
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	// Load balancers and monitoring poll this to verify the service is up.
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes and applies the
// necessary middleware.  Unauthenticated operations live under /v1/auth,
// while the protected identity endpoint lives under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	// Registration binds an email login to a wallet address and returns tokens.
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// Refresh rotates the refresh token; refresh-access only mints a new
	// access token.
	g.POST("/refresh", a.Refresh)
	g.POST("/refresh-access", a.RefreshAccess)
	// Logout accepts either a bearer token (revoke all sessions) or a
	// refresh_token body (revoke one).
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterVault wires the vault lifecycle and heir endpoints.  Everything
// here requires a valid access token; the wallet address inside the token
// is the identity each operation acts for.
func RegisterVault(e *echo.Echo, v *handler.VaultHandler, h *handler.HeirHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.Use(middleware.RequireRole("MEMBER", "ORACLE", "ADMIN"))

	// Owner-side lifecycle.
	g.POST("/vaults", v.Create)
	g.POST("/vaults/ping", v.Ping)
	g.POST("/vaults/deposit", v.Deposit)
	g.PUT("/vaults/heirs", v.UpdateHeirs)
	g.PUT("/vaults/payload", v.UpdatePayload)
	g.PUT("/vaults/interval", v.UpdateInterval)
	g.DELETE("/vaults", v.Deactivate)

	// Subscription renewal and heir-initiated claim are addressed by owner:
	// owners renew their own vault, heirs renew or claim someone else's.
	g.POST("/vaults/:owner/renew", v.Renew)
	g.POST("/vaults/:owner/claim", v.Claim)

	// Reads.
	g.GET("/vaults/me", v.Mine)
	g.GET("/vaults/me/accrued-fee", v.AccruedFee)
	g.GET("/vaults/gas-estimate", v.GasEstimate)
	g.GET("/vaults/:owner/status", v.Status)
	g.GET("/vaults/:owner/time-to-unlock", v.TimeToUnlock)
	g.GET("/account/balance", v.AccountBalance)

	// Heir discovery.
	g.GET("/heir/vaults", h.Vaults)
	g.GET("/heir/distributions", h.Distributions)
	g.GET("/distributions/:owner", h.Distribution)
}

// RegisterAdmin wires the operator endpoints.  The oracle rate push is
// open to both ADMIN and ORACLE tokens; ledger funding, pool
// withdrawals and totals are ADMIN only.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	oracle := e.Group("/v1/admin")
	oracle.Use(middleware.JWTAuth(jwtSecret))
	oracle.Use(middleware.RequireRole("ADMIN", "ORACLE"))
	oracle.PUT("/rate", a.SetRate)

	admin := e.Group("/v1/admin")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireRole("ADMIN"))
	admin.POST("/accounts/credit", a.FundAccount)
	admin.POST("/withdrawals/revenue", a.WithdrawRevenue)
	admin.POST("/withdrawals/gas-excess", a.WithdrawGasExcess)
	admin.GET("/totals", a.Totals)
}

// RegisterPublic registers unauthenticated browse endpoints: the tier
// table, the oracle rate and per-tier pricing.  These are hot, read-only
// and identical for every caller, so they run behind the Redis response
// cache and the token-bucket rate limiter when a Redis client exists.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, rdb *redis.Client) {
	mws := []echo.MiddlewareFunc{
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}
	e.GET("/v1/tiers", p.Tiers, mws...)
	e.GET("/v1/tiers/:tier/price", p.Price, mws...)
	e.GET("/v1/rate", p.Rate, mws...)
}
