package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/collegia/collegia/auth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// SignatureHeader carries the hex HMAC-SHA256 of the webhook body
const SignatureHeader = "x-webhook-signature"

// MonthlyPriceKES maps purchasable tiers to their monthly price in
// KES cents.
var MonthlyPriceKES = map[auth.SubscriptionTier]int64{
	auth.TierIntermediate: 1500_00,
	auth.TierAdvanced:     3000_00,
}

// STKPushRequest is what we hand the processor to start a mobile payment
type STKPushRequest struct {
	MSISDN    string
	Amount    int64
	Currency  string
	Reference string
}

// STKPusher starts an STK push on the subscriber handset and returns the
// processor's checkout request id used to correlate the async callback.
type STKPusher interface {
	Push(ctx context.Context, req STKPushRequest) (string, error)
}

// RegisterPaymentRoutes mounts payment initiation and the processor
// callbacks. The callbacks are reached by the processors, not by
// browsers, and sit outside the session guard.
func RegisterPaymentRoutes[T any](app router.Router[T], controller *Controller) {
	app.Post("/api/payments/mpesa/initiate", controller.InitiateMpesa).
		SetName("api.payments.mpesa.initiate")
	app.Post("/api/payments/mpesa/callback", controller.MpesaCallback).
		SetName("api.payments.mpesa.callback")
	app.Post("/api/payments/stripe/webhook", controller.StripeWebhook).
		SetName("api.payments.stripe.webhook")
}

type Controller struct {
	Logger        auth.Logger
	Repo          Payments
	Subscriptions *ApplySubscriptionHandler
	Pusher        STKPusher
	WebhookSecret string
}

func NewController(repo Payments, subs *ApplySubscriptionHandler, pusher STKPusher, secret string, logger auth.Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		Logger:        logger,
		Repo:          repo,
		Subscriptions: subs,
		Pusher:        pusher,
		WebhookSecret: secret,
	}
}

// InitiateMpesaPayload is the STK push initiation payload
type InitiateMpesaPayload struct {
	Phone          string                `json:"phone"`
	Tier           auth.SubscriptionTier `json:"tier"`
	DurationMonths int                   `json:"durationMonths"`
}

// Validate will validate the payload
func (r InitiateMpesaPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Phone, validation.Required),
		validation.Field(&r.Tier, validation.Required, validation.In(
			auth.TierIntermediate,
			auth.TierAdvanced,
		)),
		validation.Field(&r.DurationMonths, validation.Required, validation.Min(1), validation.Max(12)),
	)
}

// InitiateMpesa handles POST /api/payments/mpesa/initiate. It records a
// pending payment and fires the STK push, the callback settles it.
func (c *Controller) InitiateMpesa(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	payload := new(InitiateMpesaPayload)
	if err := ctx.Bind(payload); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "malformed request body",
		})
	}

	if err := payload.Validate(); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": auth.FormatValidationErrorToMap(err),
		})
	}

	msisdn, err := NormalizeMSISDN(payload.Phone)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid phone number",
		})
	}

	amount := MonthlyPriceKES[payload.Tier] * int64(payload.DurationMonths)
	transactionID := newTransactionID()

	checkoutRequestID, err := c.Pusher.Push(ctx.Context(), STKPushRequest{
		MSISDN:    msisdn,
		Amount:    amount,
		Currency:  "KES",
		Reference: transactionID,
	})
	if err != nil {
		c.Logger.Error("stk push failed", "user_id", userID.String(), "error", err)
		return ctx.JSON(http.StatusBadGateway, map[string]any{
			"error": "payment provider unavailable",
		})
	}

	record := &Payment{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          ProviderMpesa,
		TransactionID:     transactionID,
		CheckoutRequestID: checkoutRequestID,
		Amount:            amount,
		Currency:          "KES",
		Status:            StatusPending,
		Tier:              payload.Tier,
		DurationMonths:    payload.DurationMonths,
		Metadata: map[string]any{
			"msisdn": msisdn,
		},
	}

	created, err := c.Repo.Create(ctx.Context(), record)
	if err != nil {
		c.Logger.Error("payment create failed", "transaction_id", transactionID, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to record payment",
		})
	}

	return ctx.JSON(http.StatusAccepted, map[string]any{
		"success":       true,
		"transactionId": created.TransactionID,
		"status":        created.Status,
	})
}

type mpesaCallbackEnvelope struct {
	Body struct {
		StkCallback struct {
			MerchantRequestID string `json:"MerchantRequestID"`
			CheckoutRequestID string `json:"CheckoutRequestID"`
			ResultCode        int    `json:"ResultCode"`
			ResultDesc        string `json:"ResultDesc"`
		} `json:"stkCallback"`
	} `json:"Body"`
}

// MpesaCallback handles POST /api/payments/mpesa/callback. The processor
// retries until it sees a 200, so anything we cannot act on is still
// acknowledged and only logged.
func (c *Controller) MpesaCallback(ctx router.Context) error {
	ack := map[string]any{"ResultCode": 0, "ResultDesc": "Accepted"}

	envelope := mpesaCallbackEnvelope{}
	if err := json.Unmarshal(ctx.Body(), &envelope); err != nil {
		c.Logger.Warn("mpesa callback body unreadable", "error", err)
		return ctx.JSON(http.StatusOK, ack)
	}

	callback := envelope.Body.StkCallback
	if callback.CheckoutRequestID == "" {
		c.Logger.Warn("mpesa callback missing checkout request id")
		return ctx.JSON(http.StatusOK, ack)
	}

	record, err := c.Repo.GetByCheckoutRequestID(ctx.Context(), callback.CheckoutRequestID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			c.Logger.Warn("mpesa callback for unknown payment",
				"checkout_request_id", callback.CheckoutRequestID,
			)
			return ctx.JSON(http.StatusOK, ack)
		}
		c.Logger.Error("mpesa callback lookup failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"ResultCode": 1,
			"ResultDesc": "Internal error",
		})
	}

	if record.Status != StatusPending {
		// retried callback, already settled
		return ctx.JSON(http.StatusOK, ack)
	}

	if callback.ResultCode != 0 {
		record.Status = StatusFailed
		if record.Metadata == nil {
			record.Metadata = map[string]any{}
		}
		record.Metadata["result_desc"] = callback.ResultDesc
		if _, err := c.Repo.Update(ctx.Context(), record); err != nil {
			c.Logger.Error("payment update failed", "transaction_id", record.TransactionID, "error", err)
		}
		return ctx.JSON(http.StatusOK, ack)
	}

	if err := c.settle(ctx, record); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"ResultCode": 1,
			"ResultDesc": "Internal error",
		})
	}

	return ctx.JSON(http.StatusOK, ack)
}

type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID          string `json:"id"`
			AmountTotal int64  `json:"amount_total"`
			Currency    string `json:"currency"`
			Metadata    struct {
				UserID   string `json:"userId"`
				Tier     string `json:"tier"`
				Duration int    `json:"duration,string"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// StripeWebhook handles POST /api/payments/stripe/webhook. Only
// checkout.session.completed acts, every other event type is
// acknowledged and ignored.
func (c *Controller) StripeWebhook(ctx router.Context) error {
	body := ctx.Body()

	if !c.verifySignature(body, ctx.Header(SignatureHeader)) {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "invalid signature",
		})
	}

	event := stripeEvent{}
	if err := json.Unmarshal(body, &event); err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "malformed event",
		})
	}

	if event.Type != "checkout.session.completed" {
		return ctx.JSON(http.StatusOK, map[string]any{"received": true})
	}

	object := event.Data.Object

	userID, err := uuid.Parse(object.Metadata.UserID)
	if err != nil {
		c.Logger.Warn("stripe event missing user id", "session_id", object.ID)
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "missing user metadata",
		})
	}

	tier, ok := auth.ParseTier(object.Metadata.Tier)
	if !ok || !PaidTier(tier) {
		c.Logger.Warn("stripe event with invalid tier",
			"session_id", object.ID,
			"tier", object.Metadata.Tier,
		)
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid tier metadata",
		})
	}

	duration := object.Metadata.Duration
	if duration <= 0 {
		duration = 1
	}

	// session ids repeat across webhook retries, the existing record
	// makes the handler idempotent
	if existing, err := c.Repo.GetByTransactionID(ctx.Context(), object.ID); err == nil {
		if existing.Status == StatusCompleted {
			return ctx.JSON(http.StatusOK, map[string]any{"received": true})
		}
	} else if !goerrors.IsNotFound(err) {
		c.Logger.Error("stripe event lookup failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "lookup failed",
		})
	}

	record := &Payment{
		ID:             uuid.New(),
		UserID:         userID,
		Provider:       ProviderStripe,
		TransactionID:  object.ID,
		Amount:         object.AmountTotal,
		Currency:       object.Currency,
		Status:         StatusPending,
		Tier:           tier,
		DurationMonths: duration,
	}

	created, err := c.Repo.Create(ctx.Context(), record)
	if err != nil {
		c.Logger.Error("payment create failed", "transaction_id", object.ID, "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to record payment",
		})
	}

	if err := c.settle(ctx, created); err != nil {
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to apply subscription",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{"received": true})
}

// settle marks the payment completed and applies the purchased
// subscription to the account.
func (c *Controller) settle(ctx router.Context, record *Payment) error {
	record.Status = StatusCompleted
	if _, err := c.Repo.Update(ctx.Context(), record); err != nil {
		c.Logger.Error("payment update failed", "transaction_id", record.TransactionID, "error", err)
		return err
	}

	err := c.Subscriptions.ApplySubscription(ctx.Context(), ApplySubscriptionMessage{
		UserID:         record.UserID,
		Tier:           record.Tier,
		DurationMonths: record.DurationMonths,
	})
	if err != nil {
		c.Logger.Error("subscription apply failed",
			"transaction_id", record.TransactionID,
			"user_id", record.UserID.String(),
			"error", err,
		)
		return err
	}

	return nil
}

func (c *Controller) verifySignature(body []byte, signature string) bool {
	if c.WebhookSecret == "" {
		return true
	}
	if signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(c.WebhookSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	return hmac.Equal([]byte(expected), []byte(signature))
}

func newTransactionID() string {
	return fmt.Sprintf("pay_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
