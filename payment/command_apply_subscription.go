package payment

import (
	"context"
	"time"

	"github.com/collegia/collegia/auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// ApplySubscriptionMessage upgrades a user subscription after a
// completed payment.
type ApplySubscriptionMessage struct {
	UserID         uuid.UUID             `json:"userId"`
	Tier           auth.SubscriptionTier `json:"tier"`
	DurationMonths int                   `json:"durationMonths"`
}

// Type identifier of our message
func (e ApplySubscriptionMessage) Type() string { return "subscription.apply" }

type ApplySubscriptionHandler struct {
	users auth.Users
	sink  auth.ActivitySink
}

func NewApplySubscriptionHandler(users auth.Users) *ApplySubscriptionHandler {
	return &ApplySubscriptionHandler{
		users: users,
	}
}

func (h *ApplySubscriptionHandler) WithActivitySink(sink auth.ActivitySink) *ApplySubscriptionHandler {
	h.sink = sink
	return h
}

func (h *ApplySubscriptionHandler) ApplySubscription(ctx context.Context, event ApplySubscriptionMessage) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return h.execute(ctx, event)
	}
}

func (h *ApplySubscriptionHandler) execute(ctx context.Context, event ApplySubscriptionMessage) error {
	if event.UserID == uuid.Nil {
		return goerrors.New("user id is required", goerrors.CategoryBadInput)
	}

	if !PaidTier(event.Tier) {
		return goerrors.New("tier is not purchasable", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"tier": event.Tier})
	}

	if event.DurationMonths <= 0 {
		return goerrors.New("duration must be at least one month", goerrors.CategoryBadInput)
	}

	now := time.Now()
	endDate := now.AddDate(0, event.DurationMonths, 0)

	sub := auth.Subscription{
		Tier:      event.Tier,
		Status:    auth.SubscriptionActive,
		StartDate: &now,
		EndDate:   &endDate,
	}

	if err := h.users.ApplySubscription(ctx, event.UserID, sub); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to apply subscription").
			WithMetadata(map[string]any{
				"user_id": event.UserID.String(),
				"tier":    event.Tier,
			})
	}

	if h.sink != nil {
		_ = h.sink.Record(ctx, auth.ActivityEvent{
			EventType: auth.ActivityEventSubscriptionSet,
			Actor: auth.ActorRef{
				ID:   event.UserID.String(),
				Type: "user",
			},
			UserID: event.UserID.String(),
			Metadata: map[string]any{
				"tier":     string(event.Tier),
				"end_date": endDate.Format(time.RFC3339),
			},
			OccurredAt: now,
		})
	}

	return nil
}
