package auth

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SessionObject is a plain-value view of a verified access token, handed
// to handlers that only care about who the caller is.
type SessionObject struct {
	UserID         string             `json:"user_id,omitempty"`
	Email          string             `json:"email,omitempty"`
	Role           UserRole           `json:"role,omitempty"`
	Tier           SubscriptionTier   `json:"tier,omitempty"`
	Status         SubscriptionStatus `json:"status,omitempty"`
	IssuedAt       *time.Time         `json:"issued_at,omitempty"`
	ExpirationDate *time.Time         `json:"expiration_date,omitempty"`
}

func (s *SessionObject) GetUserID() string {
	return s.UserID
}

func (s *SessionObject) GetUserUUID() (uuid.UUID, error) {
	return uuid.Parse(s.UserID)
}

func (s *SessionObject) GetEmail() string {
	return s.Email
}

// HasRole checks if the user has a specific role
func (s *SessionObject) HasRole(role UserRole) bool {
	return s.Role == role
}

// IsAtLeast checks if the user's role is at least the minimum required role
func (s *SessionObject) IsAtLeast(minRole UserRole) bool {
	return s.Role.IsAtLeast(minRole)
}

// HasTierAccess reports whether the session's subscription covers the tier
func (s *SessionObject) HasTierAccess(tier SubscriptionTier) bool {
	if s.Status != SubscriptionActive {
		return tier == TierBasics
	}
	return s.Tier.Includes(tier)
}

func (s SessionObject) String() string {
	issuedAt := "<nil>"
	if s.IssuedAt != nil {
		issuedAt = s.IssuedAt.Format(time.RFC1123)
	}
	return fmt.Sprintf(
		"user=%s role=%s tier=%s iat=%s",
		s.UserID,
		s.Role,
		s.Tier,
		issuedAt,
	)
}

// SessionFromClaims creates a SessionObject from verified access claims
func SessionFromClaims(claims *AccessClaims) (*SessionObject, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	issuedAt := claims.IssuedTime()
	expiresAt := claims.Expires()

	return &SessionObject{
		UserID:         claims.UserID(),
		Email:          claims.Email,
		Role:           claims.UserRole,
		Tier:           claims.Subscription.Tier,
		Status:         claims.Subscription.Status,
		IssuedAt:       &issuedAt,
		ExpirationDate: &expiresAt,
	}, nil
}
