package router

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/Techmanna/seat-reservation-api/internal/config"
	"github.com/Techmanna/seat-reservation-api/internal/handler"
	"github.com/Techmanna/seat-reservation-api/internal/middleware"
	"github.com/Techmanna/seat-reservation-api/internal/model"
)

// Handlers bundles everything the route table needs.
type Handlers struct {
	Health   *handler.HealthHandler
	Auth     *handler.AuthHandler
	Booking  *handler.BookingHandler
	Settings *handler.SettingsHandler
}

// RegisterRoutes wires the full route table onto the provided Echo instance.
// All /api routes share the rate limiter; the two public GET endpoints go
// through the Redis response cache (its short TTL keeps seat availability
// close to live), and PUT /api/settings requires an admin token.
func RegisterRoutes(e *echo.Echo, h Handlers, cfg config.Config, rdb *redis.Client) {
	e.GET("/", h.Health.Root)
	e.GET("/healthz", h.Health.Health)

	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	api := e.Group("/api", limiter)

	api.POST("/auth/login", h.Auth.Login)

	api.POST("/bookings/initiate", h.Booking.Initiate)
	api.POST("/bookings/verify", h.Booking.Verify)
	api.POST("/bookings/resend-otp", h.Booking.ResendOTP)
	api.POST("/bookings/cancel", h.Booking.Cancel)
	api.GET("/bookings/seats/:date", h.Booking.AvailableSeats, cache)

	api.GET("/settings", h.Settings.Get, cache)
	api.PUT("/settings", h.Settings.Update,
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RequireRole(model.RoleAdmin))

	// Unknown routes get the same envelope shape as everything else.
	e.RouteNotFound("/*", func(c echo.Context) error {
		return c.JSON(http.StatusNotFound, handler.Envelope{
			Success: false,
			Message: "Not found",
			Error:   "route not found",
		})
	})
}
