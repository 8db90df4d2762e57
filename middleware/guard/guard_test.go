package guard_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/collegia/collegia/middleware/guard"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/google/uuid"
)

var _ router.Context = (*fakeContext)(nil)

type testConfig struct {
	accessTTL time.Duration
}

func (c testConfig) GetAccessSigningKey() string  { return "guard-access-secret" }
func (c testConfig) GetRefreshSigningKey() string { return "guard-refresh-secret" }
func (c testConfig) GetAccessTokenTTL() time.Duration {
	if c.accessTTL != 0 {
		return c.accessTTL
	}
	return 15 * time.Minute
}
func (c testConfig) GetRefreshTokenTTL() time.Duration { return 7 * 24 * time.Hour }
func (c testConfig) GetIssuer() string                 { return "collegia-test" }
func (c testConfig) IsProduction() bool                { return false }

type stubUserFinder struct {
	user *auth.User
	err  error
}

func (s stubUserFinder) FindByID(context.Context, string) (*auth.User, error) {
	return s.user, s.err
}

func guardUser(role auth.UserRole) *auth.User {
	return &auth.User{
		ID:       uuid.New(),
		FullName: "Grace Hopper",
		Email:    "grace@example.com",
		Role:     role,
		Subscription: auth.Subscription{
			Tier:   auth.TierBasics,
			Status: auth.SubscriptionActive,
		},
	}
}

type guardHarness struct {
	tokens  auth.TokenService
	expired auth.TokenService
	mw      router.MiddlewareFunc
}

func newGuardHarness(t *testing.T, finder guard.UserFinder) *guardHarness {
	t.Helper()

	cfg := testConfig{}
	tokens := auth.NewTokenService(cfg, nil)
	expired := auth.NewTokenService(testConfig{accessTTL: -time.Minute}, nil)

	mw := guard.New(guard.Config{
		Tokens:  tokens,
		Users:   finder,
		Cookies: auth.NewCookieManager(cfg),
	})

	return &guardHarness{tokens: tokens, expired: expired, mw: mw}
}

func (h *guardHarness) run(t *testing.T, ctx *fakeContext) {
	t.Helper()

	handler := h.mw(func(c router.Context) error {
		return c.Next()
	})
	require.NoError(t, handler(ctx))
}

func TestGuard_UnauthenticatedProtectedPage(t *testing.T) {
	h := newGuardHarness(t, stubUserFinder{err: auth.ErrUserNotFound})

	ctx := newFakeContext(http.MethodGet, "/dashboard")
	h.run(t, ctx)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, "/login", ctx.redirectedTo)
	assert.Equal(t, http.StatusFound, ctx.redirectStatus)

	// stale cookies are cleared on the way out
	require.Len(t, ctx.setCookies, 2)
	for _, cookie := range ctx.setCookies {
		assert.Empty(t, cookie.Value)
	}
}

func TestGuard_UnauthenticatedPostUsesSeeOther(t *testing.T) {
	h := newGuardHarness(t, stubUserFinder{err: auth.ErrUserNotFound})

	ctx := newFakeContext(http.MethodPost, "/dashboard/settings")
	h.run(t, ctx)

	assert.Equal(t, http.StatusSeeOther, ctx.redirectStatus)
}

func TestGuard_ValidSession(t *testing.T) {
	user := guardUser(auth.RoleStudent)
	h := newGuardHarness(t, stubUserFinder{user: user})

	access, err := h.tokens.IssueAccess(user)
	require.NoError(t, err)

	ctx := newFakeContext(http.MethodGet, "/dashboard")
	ctx.cookies[auth.AccessTokenCookie] = access
	h.run(t, ctx)

	assert.True(t, ctx.nextCalled)
	assert.Empty(t, ctx.redirectedTo)

	assert.Equal(t, user.ID.String(), ctx.headers[guard.HeaderUserID])
	assert.Equal(t, string(auth.RoleStudent), ctx.headers[guard.HeaderUserRole])

	claims, ok := ctx.locals[auth.ClaimsLocalsKey].(*auth.AccessClaims)
	require.True(t, ok)
	assert.Equal(t, user.Email, claims.Email)

	fromCtx, ok := auth.GetClaims(ctx.Context())
	require.True(t, ok)
	assert.Equal(t, user.ID.String(), fromCtx.UserID())
}

func TestGuard_AuthedUserLeavesAuthPages(t *testing.T) {
	user := guardUser(auth.RoleStudent)
	h := newGuardHarness(t, stubUserFinder{user: user})

	access, err := h.tokens.IssueAccess(user)
	require.NoError(t, err)

	ctx := newFakeContext(http.MethodGet, "/login")
	ctx.cookies[auth.AccessTokenCookie] = access
	h.run(t, ctx)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, "/dashboard", ctx.redirectedTo)
}

func TestGuard_InlineRefresh(t *testing.T) {
	user := guardUser(auth.RoleStudent)
	h := newGuardHarness(t, stubUserFinder{user: user})

	staleAccess, err := h.expired.IssueAccess(user)
	require.NoError(t, err)

	refresh, err := h.tokens.IssueRefresh(user.ID.String())
	require.NoError(t, err)

	ctx := newFakeContext(http.MethodGet, "/dashboard")
	ctx.cookies[auth.AccessTokenCookie] = staleAccess
	ctx.cookies[auth.RefreshTokenCookie] = refresh
	h.run(t, ctx)

	assert.True(t, ctx.nextCalled)
	assert.Empty(t, ctx.redirectedTo)

	// a fresh access cookie is written inline
	require.Len(t, ctx.setCookies, 1)
	assert.Equal(t, auth.AccessTokenCookie, ctx.setCookies[0].Name)
	assert.NotEmpty(t, ctx.setCookies[0].Value)

	_, err = h.tokens.VerifyAccess(ctx.setCookies[0].Value)
	assert.NoError(t, err)
}

func TestGuard_InlineRefresh_MissingUser(t *testing.T) {
	user := guardUser(auth.RoleStudent)
	h := newGuardHarness(t, stubUserFinder{err: auth.ErrUserNotFound})

	refresh, err := h.tokens.IssueRefresh(user.ID.String())
	require.NoError(t, err)

	ctx := newFakeContext(http.MethodGet, "/dashboard")
	ctx.cookies[auth.RefreshTokenCookie] = refresh
	h.run(t, ctx)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, "/login", ctx.redirectedTo)
}

func TestGuard_AdminAreaRequiresAdmin(t *testing.T) {
	user := guardUser(auth.RoleInstructor)
	h := newGuardHarness(t, stubUserFinder{user: user})

	access, err := h.tokens.IssueAccess(user)
	require.NoError(t, err)

	ctx := newFakeContext(http.MethodGet, "/admin/users")
	ctx.cookies[auth.AccessTokenCookie] = access
	h.run(t, ctx)

	assert.False(t, ctx.nextCalled)
	assert.Equal(t, "/dashboard", ctx.redirectedTo)
}

func TestGuard_AdminAreaAllowsAdmin(t *testing.T) {
	user := guardUser(auth.RoleAdmin)
	h := newGuardHarness(t, stubUserFinder{user: user})

	access, err := h.tokens.IssueAccess(user)
	require.NoError(t, err)

	ctx := newFakeContext(http.MethodGet, "/admin/users")
	ctx.cookies[auth.AccessTokenCookie] = access
	h.run(t, ctx)

	assert.True(t, ctx.nextCalled)
	assert.Empty(t, ctx.redirectedTo)
}

func TestGuard_PublicPathPassesThrough(t *testing.T) {
	h := newGuardHarness(t, stubUserFinder{err: auth.ErrUserNotFound})

	ctx := newFakeContext(http.MethodGet, "/api/courses")
	h.run(t, ctx)

	assert.True(t, ctx.nextCalled)
	assert.Empty(t, ctx.redirectedTo)
	assert.Empty(t, ctx.setCookies)
}
