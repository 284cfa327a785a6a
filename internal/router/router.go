// Package router registers the HTTP routes of the backing store.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/cinema-pos/internal/config"
	"github.com/iliyamo/cinema-pos/internal/handler"
	"github.com/iliyamo/cinema-pos/internal/middleware"
	"github.com/iliyamo/cinema-pos/internal/model"
	"github.com/iliyamo/cinema-pos/internal/observability"
)

// Deps are the handlers and shared clients routes are built from.
// Redis may be nil; caching and rate limiting are then skipped.
type Deps struct {
	JWTSecret string
	Auth      *handler.AuthHandler
	Catalog   *handler.CatalogHandler
	Seats     *handler.SeatHandler
	Bookings  *handler.BookingHandler
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       observability.Logger
}

// RegisterRoutes registers the probes and the unauthenticated routes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAuth registers login, token refresh and logout under
// /v1/auth.  Creating operators is reserved to managers.
func RegisterAuth(e *echo.Echo, d Deps) {
	g := e.Group("/v1/auth")
	g.POST("/login", d.Auth.Login)
	g.POST("/refresh", d.Auth.Refresh)
	g.POST("/logout", d.Auth.Logout)

	mgr := e.Group("/v1/auth", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleManager))
	mgr.POST("/register", d.Auth.Register)
}

// RegisterPOS registers the seat map, hold and booking routes.  Every
// route needs a STAFF or MANAGER access token.
func RegisterPOS(e *echo.Echo, d Deps) {
	v1 := e.Group("/v1", middleware.JWTAuth(d.JWTSecret), middleware.RequireRole(model.RoleStaff, model.RoleManager))
	v1.GET("/me", d.Auth.Me)

	cache := middleware.NewRedisCache(d.Cache, d.Redis, d.Log)
	v1.GET("/rooms/:id", d.Catalog.GetRoom, cache)
	v1.GET("/food-drinks", d.Catalog.ListFoodDrinks, cache)
	// seat state changes every few seconds; never cached
	v1.GET("/showtimes/:id", d.Catalog.GetShowtime)
	v1.GET("/showtimes/:id/booked-seats", d.Seats.BookedSeats)
	v1.GET("/showtimes/:id/held-seats", d.Seats.HeldSeats)

	limit := middleware.NewSeatActionLimiter(d.RateLimit, d.Redis, d.Log)
	v1.POST("/showtimes/:id/holds", d.Seats.Hold, limit.Guard("hold"))
	v1.DELETE("/showtimes/:id/holds/:seat_id", d.Seats.Release, limit.Guard("release"))

	v1.POST("/bookings", d.Bookings.Create)
	v1.GET("/bookings/:id", d.Bookings.Get)
	v1.POST("/bookings/:id/checkout", d.Bookings.Checkout)
}
