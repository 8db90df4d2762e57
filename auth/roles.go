package auth

// UserRole is the user's role
type UserRole string

const (
	// RoleStudent is the default role for new registrations
	RoleStudent UserRole = "student"
	// RoleInstructor can publish courses and schedule live classes
	RoleInstructor UserRole = "instructor"
	// RoleAdmin has full access, including the admin area
	RoleAdmin UserRole = "admin"
)

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleStudent, RoleInstructor, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAtLeast checks if this role meets the minimum required level
func (r UserRole) IsAtLeast(minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleStudent:    0,
		RoleInstructor: 1,
		RoleAdmin:      2,
	}

	currentLevel, exists := roleHierarchy[r]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// CanPublishCourses reports whether the role can create or update courses
func (r UserRole) CanPublishCourses() bool {
	return r.IsAtLeast(RoleInstructor)
}

// GetAllRoles returns all predefined roles in hierarchical order
func GetAllRoles() []UserRole {
	return []UserRole{
		RoleStudent,
		RoleInstructor,
		RoleAdmin,
	}
}

// ParseRole safely parses a string into a UserRole type
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, role.IsValid()
}

// SubscriptionTier is the paid tier a subscription grants access to
type SubscriptionTier string

const (
	// TierBasics is the free default tier
	TierBasics SubscriptionTier = "basics"
	// TierIntermediate is the first paid tier
	TierIntermediate SubscriptionTier = "intermediate"
	// TierAdvanced is the highest paid tier
	TierAdvanced SubscriptionTier = "advanced"
)

// IsValid checks if the tier is a member of the closed tier set
func (t SubscriptionTier) IsValid() bool {
	switch t {
	case TierBasics, TierIntermediate, TierAdvanced:
		return true
	default:
		return false
	}
}

// Includes reports whether content published at the given tier is
// available to subscribers of this tier.
func (t SubscriptionTier) Includes(other SubscriptionTier) bool {
	tierHierarchy := map[SubscriptionTier]int{
		TierBasics:       0,
		TierIntermediate: 1,
		TierAdvanced:     2,
	}

	currentLevel, exists := tierHierarchy[t]
	if !exists {
		return false
	}

	otherLevel, exists := tierHierarchy[other]
	if !exists {
		return false
	}

	return currentLevel >= otherLevel
}

// ParseTier safely parses a string into a SubscriptionTier type
func ParseTier(tierStr string) (SubscriptionTier, bool) {
	tier := SubscriptionTier(tierStr)
	return tier, tier.IsValid()
}

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	// SubscriptionActive grants access to the subscription's tier
	SubscriptionActive SubscriptionStatus = "active"
	// SubscriptionExpired means the paid period lapsed
	SubscriptionExpired SubscriptionStatus = "expired"
	// SubscriptionCancelled means the user cancelled the plan
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// IsValid checks if the status is a member of the closed status set
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionActive, SubscriptionExpired, SubscriptionCancelled:
		return true
	default:
		return false
	}
}
