package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SubscriptionClaim is the subscription snapshot baked into access tokens.
// Tier changes only become visible when a new access token is minted.
type SubscriptionClaim struct {
	Tier   SubscriptionTier   `json:"tier"`
	Status SubscriptionStatus `json:"status"`
}

// AccessClaims is the payload of the short-lived access token
type AccessClaims struct {
	jwt.RegisteredClaims
	UID          string            `json:"userId"`
	Email        string            `json:"email"`
	UserRole     UserRole          `json:"role"`
	Subscription SubscriptionClaim `json:"subscription"`
}

// UserID returns the user ID
func (c *AccessClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Role returns the global role
func (c *AccessClaims) Role() UserRole {
	return c.UserRole
}

// HasRole checks if the user has a specific role
func (c *AccessClaims) HasRole(role UserRole) bool {
	return c.UserRole == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (c *AccessClaims) IsAtLeast(minRole UserRole) bool {
	return c.UserRole.IsAtLeast(minRole)
}

// HasTierAccess reports whether the subscription covers the given tier
func (c *AccessClaims) HasTierAccess(tier SubscriptionTier) bool {
	if c.Subscription.Status != SubscriptionActive {
		return tier == TierBasics
	}
	return c.Subscription.Tier.Includes(tier)
}

// Expires returns the expiration time
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedTime returns the issued at time
func (c *AccessClaims) IssuedTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// RefreshClaims is the payload of the long-lived refresh token. It
// deliberately carries nothing but the user ID.
type RefreshClaims struct {
	jwt.RegisteredClaims
	UID string `json:"userId"`
}

// UserID returns the user ID
func (c *RefreshClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// Expires returns the expiration time
func (c *RefreshClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
