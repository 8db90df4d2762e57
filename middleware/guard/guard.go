// Package guard implements the per-request route guard: it verifies the
// access cookie, performs at most one inline refresh for protected pages,
// bounces authenticated users off the auth pages, and propagates the
// caller's identity to downstream handlers.
package guard

import (
	"context"
	"net/http"
	"strings"

	"github.com/collegia/collegia/auth"
	"github.com/goliatone/go-router"
)

// Headers injected for downstream handlers once the caller is known
const (
	HeaderUserID   = "x-user-id"
	HeaderUserRole = "x-user-role"
)

// UserFinder is the minimal user lookup the inline refresh needs
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)
}

type Config struct {
	// Filter skips the guard entirely when it returns true
	Filter func(router.Context) bool

	Tokens  auth.TokenService
	Users   UserFinder
	Cookies *auth.CookieManager
	Logger  auth.Logger

	// Protected route prefixes that require a valid session
	Protected []string
	// AuthPages are login/register style pages that authenticated users
	// get redirected away from
	AuthPages []string
	// AdminPrefix additionally requires the admin role
	AdminPrefix string

	LoginPath     string
	DashboardPath string

	// ContextKey is the locals key the verified claims are stored under
	ContextKey string
}

// New builds the guard middleware. The guard keeps no state between
// requests; every decision is derived from the cookies on the request.
func New(config ...Config) router.MiddlewareFunc {
	cfg := getDefaultConfig(config...)

	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			path := ctx.Path()
			claims := cfg.verifyAccessCookie(ctx)

			if claims != nil && cfg.isAuthPage(path) {
				return redirect(ctx, cfg.DashboardPath)
			}

			if cfg.isProtected(path) {
				if claims == nil {
					claims = cfg.tryInlineRefresh(ctx)
				}

				if claims == nil {
					// stale or missing session, clean up before bouncing
					cfg.Cookies.Clear(ctx)
					return redirect(ctx, cfg.LoginPath)
				}

				if cfg.isAdminArea(path) && !claims.HasRole(auth.RoleAdmin) {
					cfg.Logger.Warn("non-admin request to admin area",
						"user_id", claims.UserID(),
						"role", claims.Role(),
						"path", path,
					)
					return redirect(ctx, cfg.DashboardPath)
				}
			}

			if claims != nil {
				ctx.SetHeader(HeaderUserID, claims.UserID())
				ctx.SetHeader(HeaderUserRole, string(claims.Role()))
				ctx.Locals(cfg.ContextKey, claims)
				ctx.SetContext(auth.WithClaimsContext(ctx.Context(), claims))
			}

			return ctx.Next()
		}
	}
}

func getDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Tokens == nil {
		panic("GUARD: middleware configuration: TokenService is required.")
	}

	if cfg.Users == nil {
		panic("GUARD: middleware configuration: UserFinder is required.")
	}

	if cfg.Cookies == nil {
		panic("GUARD: middleware configuration: CookieManager is required.")
	}

	if cfg.Logger == nil {
		cfg.Logger = noopLogger{}
	}

	if len(cfg.Protected) == 0 {
		cfg.Protected = []string{"/dashboard", "/admin", "/chat"}
	}

	if len(cfg.AuthPages) == 0 {
		cfg.AuthPages = []string{"/login", "/register"}
	}

	if cfg.AdminPrefix == "" {
		cfg.AdminPrefix = "/admin"
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	if cfg.DashboardPath == "" {
		cfg.DashboardPath = "/dashboard"
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = auth.ClaimsLocalsKey
	}

	return cfg
}

func (cfg *Config) verifyAccessCookie(ctx router.Context) *auth.AccessClaims {
	token := cfg.Cookies.ReadAccess(ctx)
	if token == "" {
		return nil
	}

	claims, err := cfg.Tokens.VerifyAccess(token)
	if err != nil {
		cfg.Logger.Debug("access token rejected", "error", err)
		return nil
	}

	return claims
}

// tryInlineRefresh attempts exactly one refresh. Any failure along the
// chain (bad token, missing user, issuance error) yields nil and the
// caller treats the request as unauthenticated.
func (cfg *Config) tryInlineRefresh(ctx router.Context) *auth.AccessClaims {
	refreshToken := cfg.Cookies.ReadRefresh(ctx)
	if refreshToken == "" {
		return nil
	}

	refreshClaims, err := cfg.Tokens.VerifyRefresh(refreshToken)
	if err != nil {
		cfg.Logger.Debug("refresh token rejected", "error", err)
		return nil
	}

	user, err := cfg.Users.FindByID(ctx.Context(), refreshClaims.UserID())
	if err != nil {
		cfg.Logger.Warn("refresh token references missing user", "user_id", refreshClaims.UserID())
		return nil
	}

	access, err := cfg.Tokens.IssueAccess(user)
	if err != nil {
		cfg.Logger.Error("inline refresh failed to issue access token", "error", err)
		return nil
	}

	claims, err := cfg.Tokens.VerifyAccess(access)
	if err != nil {
		return nil
	}

	cfg.Cookies.SetAccess(ctx, access)
	cfg.Logger.Info("session refreshed inline", "user_id", user.ID.String())

	return claims
}

func (cfg *Config) isProtected(path string) bool {
	return hasPrefixIn(path, cfg.Protected)
}

func (cfg *Config) isAuthPage(path string) bool {
	return hasPrefixIn(path, cfg.AuthPages)
}

func (cfg *Config) isAdminArea(path string) bool {
	return strings.HasPrefix(path, cfg.AdminPrefix)
}

func hasPrefixIn(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func redirect(ctx router.Context, target string) error {
	statusCode := http.StatusSeeOther
	if ctx.Method() == string(router.GET) {
		statusCode = http.StatusFound
	}
	return ctx.Redirect(target, statusCode)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
