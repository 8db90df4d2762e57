package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Subscription is the subscription sub-record embedded in every user.
type Subscription struct {
	Tier      SubscriptionTier   `bun:"tier,notnull" json:"tier"`
	Status    SubscriptionStatus `bun:"status,notnull" json:"status"`
	StartDate *time.Time         `bun:"start_date,nullzero" json:"startDate,omitempty"`
	EndDate   *time.Time         `bun:"end_date,nullzero" json:"endDate,omitempty"`
}

// EnsureDefaults fills the free-tier defaults for new subscriptions
func (s *Subscription) EnsureDefaults() {
	if s.Tier == "" {
		s.Tier = TierBasics
	}
	if s.Status == "" {
		s.Status = SubscriptionActive
	}
	if s.StartDate == nil {
		now := time.Now()
		s.StartDate = &now
	}
}

// IsActive reports whether the subscription currently grants its tier
func (s Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}

// User is the user model
type User struct {
	bun.BaseModel       `bun:"table:users,alias:usr"`
	ID                  uuid.UUID    `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	FullName            string       `bun:"full_name,notnull" json:"fullName,omitempty"`
	Email               string       `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash        string       `bun:"password_hash,notnull" json:"-"`
	Role                UserRole     `bun:"user_role,notnull" json:"role,omitempty"`
	Subscription        Subscription `bun:"embed:subscription_" json:"subscription"`
	OnboardingCompleted bool         `bun:"onboarding_completed" json:"onboardingCompleted"`
	LoginAttempts       int          `bun:"login_attempts" json:"-"`
	LoginAttemptAt      *time.Time   `bun:"login_attempt_at,nullzero" json:"-"`
	LoggedInAt          *time.Time   `bun:"loggedin_at,nullzero" json:"-"`
	CreatedAt           *time.Time   `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt           *time.Time   `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt           *time.Time   `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}

// Profile is the non-sensitive projection returned by the auth endpoints.
type Profile struct {
	ID                  string       `json:"id"`
	FullName            string       `json:"fullName"`
	Email               string       `json:"email"`
	Role                UserRole     `json:"role"`
	Subscription        Subscription `json:"subscription"`
	OnboardingCompleted bool         `json:"onboardingCompleted"`
}

// Profile returns the user without credential material
func (u *User) Profile() Profile {
	return Profile{
		ID:                  u.ID.String(),
		FullName:            u.FullName,
		Email:               u.Email,
		Role:                u.Role,
		Subscription:        u.Subscription,
		OnboardingCompleted: u.OnboardingCompleted,
	}
}
