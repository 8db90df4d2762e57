// Package ratelimit implements a fixed-window rate limiter on top of an
// atomic increment-with-expiry counter. When the counter backend is
// unavailable the limiter fails open: availability beats throttling for
// every route this guards.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/goliatone/go-router"
)

// DefaultMax is the default number of requests allowed per window
const DefaultMax = 5

// DefaultWindow is the default fixed window size
const DefaultWindow = 60 * time.Second

// DefaultKeyPrefix namespaces limiter keys in the shared counter store
const DefaultKeyPrefix = "ratelimit"

// Counter is the atomic counter the limiter runs on
type Counter interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Config defines the configuration for the rate limit middleware
type Config struct {
	// Skip defines a function to skip middleware
	Skip func(router.Context) bool

	// Max requests allowed per window
	Max int

	// Window is the fixed window duration
	Window time.Duration

	// KeyPrefix namespaces the counter keys, e.g. "ratelimit:chat"
	KeyPrefix string

	// KeyFunc derives the caller identity for the counter key. Returning
	// an empty string skips limiting for the request.
	KeyFunc func(router.Context) string

	// Counter is the backing store, required
	Counter Counter

	// ErrorHandler runs when the limit is exceeded
	ErrorHandler router.ErrorHandler

	Logger auth.Logger
}

// ErrRateLimited is passed to the ErrorHandler when a caller is over budget
var ErrRateLimited = fmt.Errorf("rate limit exceeded")

// New creates the rate limit middleware
func New(config ...Config) router.MiddlewareFunc {
	cfg := getDefaultConfig(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Skip != nil && cfg.Skip(ctx) {
				return ctx.Next()
			}

			identity := cfg.KeyFunc(ctx)
			if identity == "" {
				return ctx.Next()
			}

			key := fmt.Sprintf("%s:%s", cfg.KeyPrefix, identity)

			count, err := cfg.Counter.IncrWithTTL(ctx.Context(), key, cfg.Window)
			if err != nil {
				// fail open, the counter backend being down must not
				// block the request
				cfg.Logger.Warn("rate limit counter unavailable, allowing request",
					"key", key,
					"error", err,
				)
				return ctx.Next()
			}

			if count > int64(cfg.Max) {
				return cfg.ErrorHandler(ctx, ErrRateLimited)
			}

			return ctx.Next()
		}
	}
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Counter == nil {
		panic("RATELIMIT: middleware configuration: Counter is required.")
	}

	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}

	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}

	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = DefaultKeyPrefix
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(ctx router.Context) string {
			if claims, ok := auth.GetRouterClaims(ctx); ok {
				return claims.UserID()
			}
			return ""
		}
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c router.Context, err error) error {
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"error": "Rate limit exceeded. Please slow down.",
			})
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	return cfg
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
