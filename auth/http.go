package auth

import (
	"time"

	"github.com/goliatone/go-router"
)

// Cookie names for the session token pair
const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieManager writes and clears the session cookies. Both cookies are
// httpOnly with SameSite=Lax; Secure is tied to the production flag so
// local development over plain HTTP keeps working.
type CookieManager struct {
	cfg    Config
	Logger Logger
}

func NewCookieManager(cfg Config) *CookieManager {
	return &CookieManager{
		cfg:    cfg,
		Logger: defLogger{},
	}
}

// SetSession writes both session cookies for a freshly minted pair
func (c *CookieManager) SetSession(ctx router.Context, pair *TokenPair) {
	c.SetAccess(ctx, pair.Access)
	c.SetRefresh(ctx, pair.Refresh)
}

// SetAccess writes the access token cookie
func (c *CookieManager) SetAccess(ctx router.Context, token string) {
	c.setCookieToken(ctx, AccessTokenCookie, token, c.accessDuration())
}

// SetRefresh writes the refresh token cookie
func (c *CookieManager) SetRefresh(ctx router.Context, token string) {
	c.setCookieToken(ctx, RefreshTokenCookie, token, c.refreshDuration())
}

// Clear expires both session cookies
func (c *CookieManager) Clear(ctx router.Context) {
	c.cookieDel(ctx, AccessTokenCookie)
	c.cookieDel(ctx, RefreshTokenCookie)
}

// ReadAccess returns the raw access token, empty when the cookie is absent
func (c *CookieManager) ReadAccess(ctx router.Context) string {
	return ctx.Cookies(AccessTokenCookie)
}

// ReadRefresh returns the raw refresh token, empty when the cookie is absent
func (c *CookieManager) ReadRefresh(ctx router.Context) string {
	return ctx.Cookies(RefreshTokenCookie)
}

func (c *CookieManager) accessDuration() time.Duration {
	if d := c.cfg.GetAccessTokenTTL(); d > 0 {
		return d
	}
	return DefaultAccessTokenTTL
}

func (c *CookieManager) refreshDuration() time.Duration {
	if d := c.cfg.GetRefreshTokenTTL(); d > 0 {
		return d
	}
	return DefaultRefreshTokenTTL
}

func (c *CookieManager) setCookieToken(ctx router.Context, name, val string, duration time.Duration) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    val,
		Expires:  time.Now().Add(duration),
		HTTPOnly: true,
		Secure:   c.cfg.IsProduction(),
		SameSite: "Lax",
	})
}

func (c *CookieManager) cookieDel(ctx router.Context, name string) {
	ctx.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   c.cfg.IsProduction(),
		SameSite: "Lax",
	})
}
