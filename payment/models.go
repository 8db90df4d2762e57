package payment

import (
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Provider identifies the upstream payment processor
type Provider string

const (
	ProviderMpesa  Provider = "mpesa"
	ProviderStripe Provider = "stripe"
)

func (p Provider) IsValid() bool {
	return p == ProviderMpesa || p == ProviderStripe
}

// Status tracks a payment through its lifecycle
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusRefunded  Status = "refunded"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// Payment is one processor transaction. Amount is in minor units of
// Currency, e.g. cents.
type Payment struct {
	bun.BaseModel     `bun:"table:payments,alias:pay"`
	ID                uuid.UUID             `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID            uuid.UUID             `bun:"user_id,notnull,type:uuid" json:"userId"`
	Provider          Provider              `bun:"provider,notnull" json:"provider"`
	TransactionID     string                `bun:"transaction_id,notnull,unique" json:"transactionId"`
	CheckoutRequestID string                `bun:"checkout_request_id,nullzero" json:"-"`
	Amount            int64                 `bun:"amount,notnull" json:"amount"`
	Currency          string                `bun:"currency,notnull" json:"currency"`
	Status            Status                `bun:"status,notnull" json:"status"`
	Tier              auth.SubscriptionTier `bun:"tier,notnull" json:"tier"`
	DurationMonths    int                   `bun:"duration_months,notnull" json:"durationMonths"`
	Metadata          map[string]any        `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	CreatedAt         *time.Time            `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt         *time.Time            `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}

// PaidTier reports whether a tier can be purchased. The basics tier is
// the free default and never goes through a processor.
func PaidTier(tier auth.SubscriptionTier) bool {
	return tier == auth.TierIntermediate || tier == auth.TierAdvanced
}
