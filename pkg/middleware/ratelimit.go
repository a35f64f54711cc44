package middleware

import (
	"net/http"

	"autotrader/pkg/ratelimit"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// Response represents the error response structure
type Response struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// limiterStoreAdapter exposes a ratelimit.LimiterStore through echo's
// RateLimiterStore interface.
type limiterStoreAdapter struct {
	store *ratelimit.LimiterStore
}

func (a *limiterStoreAdapter) Allow(identifier string) (bool, error) {
	return a.store.Allow(identifier), nil
}

// NewRateLimiterMiddleware limits ops-API requests per client IP.
func NewRateLimiterMiddleware() echo.MiddlewareFunc {
	config := middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store:   &limiterStoreAdapter{store: ratelimit.NewLimiterStore(rate.Limit(10), 30)},

		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},

		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, Response{
				Status:  http.StatusForbidden,
				Message: "Access forbidden: Rate limiter error occurred",
			})
		},

		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, Response{
				Status:  http.StatusTooManyRequests,
				Message: "Too many requests: Rate limit exceeded. Please try again later",
			})
		},
	}

	return middleware.RateLimiterWithConfig(config)
}
