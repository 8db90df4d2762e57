package payment_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/collegia/collegia/payment"
	"github.com/golang-jwt/jwt/v5"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePayments struct {
	payment.Payments

	byTransaction map[string]*payment.Payment
	byCheckout    map[string]*payment.Payment

	created []*payment.Payment
	updated []*payment.Payment
}

func newFakePayments() *fakePayments {
	return &fakePayments{
		byTransaction: map[string]*payment.Payment{},
		byCheckout:    map[string]*payment.Payment{},
	}
}

func (f *fakePayments) Create(_ context.Context, record *payment.Payment, _ ...repository.InsertCriteria) (*payment.Payment, error) {
	f.created = append(f.created, record)
	f.byTransaction[record.TransactionID] = record
	if record.CheckoutRequestID != "" {
		f.byCheckout[record.CheckoutRequestID] = record
	}
	return record, nil
}

func (f *fakePayments) Update(_ context.Context, record *payment.Payment, _ ...repository.UpdateCriteria) (*payment.Payment, error) {
	f.updated = append(f.updated, record)
	return record, nil
}

func (f *fakePayments) GetByTransactionID(_ context.Context, id string) (*payment.Payment, error) {
	if record, ok := f.byTransaction[id]; ok {
		return record, nil
	}
	return nil, repository.NewRecordNotFound()
}

func (f *fakePayments) GetByCheckoutRequestID(_ context.Context, id string) (*payment.Payment, error) {
	if record, ok := f.byCheckout[id]; ok {
		return record, nil
	}
	return nil, repository.NewRecordNotFound()
}

type fakeUsers struct {
	auth.Users

	appliedID  uuid.UUID
	appliedSub auth.Subscription
	applyErr   error
	applyCalls int
}

func (f *fakeUsers) ApplySubscription(_ context.Context, id uuid.UUID, sub auth.Subscription) error {
	f.applyCalls++
	if f.applyErr != nil {
		return f.applyErr
	}
	f.appliedID = id
	f.appliedSub = sub
	return nil
}

type fakePusher struct {
	req     payment.STKPushRequest
	pushErr error
}

func (f *fakePusher) Push(_ context.Context, req payment.STKPushRequest) (string, error) {
	if f.pushErr != nil {
		return "", f.pushErr
	}
	f.req = req
	return "ws_CO_test_1", nil
}

type paymentContext struct {
	router.Context

	claims  *auth.AccessClaims
	rawBody []byte
	headers map[string]string

	status int
	sent   map[string]any
}

func (c *paymentContext) Context() context.Context { return context.Background() }

func (c *paymentContext) Body() []byte { return c.rawBody }

func (c *paymentContext) Bind(v any) error {
	return json.Unmarshal(c.rawBody, v)
}

func (c *paymentContext) Header(key string) string { return c.headers[key] }

func (c *paymentContext) Locals(key any, value ...any) any {
	if key == auth.ClaimsLocalsKey && len(value) == 0 {
		if c.claims == nil {
			return nil
		}
		return c.claims
	}
	return nil
}

func (c *paymentContext) JSON(code int, val any) error {
	c.status = code
	if body, ok := val.(map[string]any); ok {
		c.sent = body
	}
	return nil
}

type paymentHarness struct {
	repo   *fakePayments
	users  *fakeUsers
	pusher *fakePusher
	ctrl   *payment.Controller
}

func newHarness(secret string) *paymentHarness {
	repo := newFakePayments()
	users := &fakeUsers{}
	pusher := &fakePusher{}
	subs := payment.NewApplySubscriptionHandler(users)
	return &paymentHarness{
		repo:   repo,
		users:  users,
		pusher: pusher,
		ctrl:   payment.NewController(repo, subs, pusher, secret, nil),
	}
}

func payerClaims(userID uuid.UUID) *auth.AccessClaims {
	return &auth.AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: userID.String(),
		},
		UID:      userID.String(),
		Email:    "payer@example.com",
		UserRole: auth.RoleStudent,
		Subscription: auth.SubscriptionClaim{
			Tier:   auth.TierBasics,
			Status: auth.SubscriptionActive,
		},
	}
}

func jsonBody(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestInitiateMpesa(t *testing.T) {
	h := newHarness("")
	userID := uuid.New()

	ctx := &paymentContext{
		claims: payerClaims(userID),
		rawBody: jsonBody(t, map[string]any{
			"phone":          "0712345678",
			"tier":           "intermediate",
			"durationMonths": 3,
		}),
	}
	require.NoError(t, h.ctrl.InitiateMpesa(ctx))

	assert.Equal(t, http.StatusAccepted, ctx.status)
	assert.Equal(t, true, ctx.sent["success"])

	require.Len(t, h.repo.created, 1)
	record := h.repo.created[0]
	assert.Equal(t, userID, record.UserID)
	assert.Equal(t, payment.ProviderMpesa, record.Provider)
	assert.Equal(t, payment.StatusPending, record.Status)
	assert.Equal(t, "ws_CO_test_1", record.CheckoutRequestID)
	// 3 months at the intermediate monthly rate
	assert.Equal(t, payment.MonthlyPriceKES[auth.TierIntermediate]*3, record.Amount)

	assert.Equal(t, "254712345678", h.pusher.req.MSISDN)
	assert.Equal(t, "KES", h.pusher.req.Currency)
}

func TestInitiateMpesa_RequiresAuth(t *testing.T) {
	h := newHarness("")
	ctx := &paymentContext{rawBody: jsonBody(t, map[string]any{
		"phone": "0712345678", "tier": "intermediate", "durationMonths": 1,
	})}
	require.NoError(t, h.ctrl.InitiateMpesa(ctx))
	assert.Equal(t, http.StatusUnauthorized, ctx.status)
	assert.Empty(t, h.repo.created)
}

func TestInitiateMpesa_RejectsBasicsTier(t *testing.T) {
	h := newHarness("")
	ctx := &paymentContext{
		claims: payerClaims(uuid.New()),
		rawBody: jsonBody(t, map[string]any{
			"phone": "0712345678", "tier": "basics", "durationMonths": 1,
		}),
	}
	require.NoError(t, h.ctrl.InitiateMpesa(ctx))
	assert.Equal(t, http.StatusBadRequest, ctx.status)
}

func TestInitiateMpesa_BadPhone(t *testing.T) {
	h := newHarness("")
	ctx := &paymentContext{
		claims: payerClaims(uuid.New()),
		rawBody: jsonBody(t, map[string]any{
			"phone": "12345", "tier": "advanced", "durationMonths": 1,
		}),
	}
	require.NoError(t, h.ctrl.InitiateMpesa(ctx))
	assert.Equal(t, http.StatusBadRequest, ctx.status)
}

func TestInitiateMpesa_PusherDown(t *testing.T) {
	h := newHarness("")
	h.pusher.pushErr = fmt.Errorf("gateway timeout")
	ctx := &paymentContext{
		claims: payerClaims(uuid.New()),
		rawBody: jsonBody(t, map[string]any{
			"phone": "0712345678", "tier": "advanced", "durationMonths": 1,
		}),
	}
	require.NoError(t, h.ctrl.InitiateMpesa(ctx))
	assert.Equal(t, http.StatusBadGateway, ctx.status)
	// nothing recorded when the push never went out
	assert.Empty(t, h.repo.created)
}

func mpesaCallbackBody(t *testing.T, checkoutID string, resultCode int) []byte {
	t.Helper()
	return jsonBody(t, map[string]any{
		"Body": map[string]any{
			"stkCallback": map[string]any{
				"CheckoutRequestID": checkoutID,
				"ResultCode":        resultCode,
				"ResultDesc":        "desc",
			},
		},
	})
}

func TestMpesaCallback_Settles(t *testing.T) {
	h := newHarness("")
	userID := uuid.New()
	pending := &payment.Payment{
		ID:                uuid.New(),
		UserID:            userID,
		Provider:          payment.ProviderMpesa,
		TransactionID:     "pay_1",
		CheckoutRequestID: "ws_CO_1",
		Status:            payment.StatusPending,
		Tier:              auth.TierAdvanced,
		DurationMonths:    2,
	}
	_, err := h.repo.Create(context.Background(), pending)
	require.NoError(t, err)
	h.repo.created = nil

	ctx := &paymentContext{rawBody: mpesaCallbackBody(t, "ws_CO_1", 0)}
	require.NoError(t, h.ctrl.MpesaCallback(ctx))

	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Equal(t, 0, ctx.sent["ResultCode"])

	assert.Equal(t, payment.StatusCompleted, pending.Status)
	assert.Equal(t, 1, h.users.applyCalls)
	assert.Equal(t, userID, h.users.appliedID)
	assert.Equal(t, auth.TierAdvanced, h.users.appliedSub.Tier)
	assert.Equal(t, auth.SubscriptionActive, h.users.appliedSub.Status)

	require.NotNil(t, h.users.appliedSub.EndDate)
	wantEnd := time.Now().AddDate(0, 2, 0)
	assert.WithinDuration(t, wantEnd, *h.users.appliedSub.EndDate, time.Minute)
}

func TestMpesaCallback_Failure(t *testing.T) {
	h := newHarness("")
	pending := &payment.Payment{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		TransactionID:     "pay_2",
		CheckoutRequestID: "ws_CO_2",
		Status:            payment.StatusPending,
		Tier:              auth.TierIntermediate,
		DurationMonths:    1,
	}
	_, err := h.repo.Create(context.Background(), pending)
	require.NoError(t, err)

	ctx := &paymentContext{rawBody: mpesaCallbackBody(t, "ws_CO_2", 1032)}
	require.NoError(t, h.ctrl.MpesaCallback(ctx))

	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Equal(t, payment.StatusFailed, pending.Status)
	assert.Equal(t, "desc", pending.Metadata["result_desc"])
	assert.Zero(t, h.users.applyCalls)
}

func TestMpesaCallback_UnknownPaymentStillAcked(t *testing.T) {
	h := newHarness("")
	ctx := &paymentContext{rawBody: mpesaCallbackBody(t, "ws_CO_missing", 0)}
	require.NoError(t, h.ctrl.MpesaCallback(ctx))
	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Zero(t, h.users.applyCalls)
}

func TestMpesaCallback_RetryAfterSettleIsNoop(t *testing.T) {
	h := newHarness("")
	settled := &payment.Payment{
		ID:                uuid.New(),
		UserID:            uuid.New(),
		TransactionID:     "pay_3",
		CheckoutRequestID: "ws_CO_3",
		Status:            payment.StatusCompleted,
		Tier:              auth.TierIntermediate,
		DurationMonths:    1,
	}
	_, err := h.repo.Create(context.Background(), settled)
	require.NoError(t, err)

	ctx := &paymentContext{rawBody: mpesaCallbackBody(t, "ws_CO_3", 0)}
	require.NoError(t, h.ctrl.MpesaCallback(ctx))

	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Zero(t, h.users.applyCalls)
	assert.Empty(t, h.repo.updated)
}

func signBody(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func stripeSessionBody(t *testing.T, eventType, sessionID string, userID uuid.UUID, tier string, duration string) []byte {
	t.Helper()
	metadata := map[string]any{
		"userId": userID.String(),
		"tier":   tier,
	}
	if duration != "" {
		metadata["duration"] = duration
	}
	return jsonBody(t, map[string]any{
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":           sessionID,
				"amount_total": 4500,
				"currency":     "usd",
				"metadata":     metadata,
			},
		},
	})
}

func TestStripeWebhook_Settles(t *testing.T) {
	secret := "whsec_test"
	h := newHarness(secret)
	userID := uuid.New()

	body := stripeSessionBody(t, "checkout.session.completed", "cs_test_1", userID, "intermediate", "6")
	ctx := &paymentContext{
		rawBody: body,
		headers: map[string]string{payment.SignatureHeader: signBody(secret, body)},
	}
	require.NoError(t, h.ctrl.StripeWebhook(ctx))

	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Equal(t, true, ctx.sent["received"])

	require.Len(t, h.repo.created, 1)
	record := h.repo.created[0]
	assert.Equal(t, payment.ProviderStripe, record.Provider)
	assert.Equal(t, "cs_test_1", record.TransactionID)
	assert.Equal(t, payment.StatusCompleted, record.Status)
	assert.Equal(t, 6, record.DurationMonths)

	assert.Equal(t, 1, h.users.applyCalls)
	assert.Equal(t, userID, h.users.appliedID)
	require.NotNil(t, h.users.appliedSub.EndDate)
	assert.WithinDuration(t, time.Now().AddDate(0, 6, 0), *h.users.appliedSub.EndDate, time.Minute)
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	h := newHarness("whsec_test")
	body := stripeSessionBody(t, "checkout.session.completed", "cs_test_2", uuid.New(), "intermediate", "1")

	ctx := &paymentContext{
		rawBody: body,
		headers: map[string]string{payment.SignatureHeader: "deadbeef"},
	}
	require.NoError(t, h.ctrl.StripeWebhook(ctx))

	assert.Equal(t, http.StatusUnauthorized, ctx.status)
	assert.Empty(t, h.repo.created)
	assert.Zero(t, h.users.applyCalls)
}

func TestStripeWebhook_MissingSignature(t *testing.T) {
	h := newHarness("whsec_test")
	body := stripeSessionBody(t, "checkout.session.completed", "cs_test_3", uuid.New(), "intermediate", "1")

	ctx := &paymentContext{rawBody: body}
	require.NoError(t, h.ctrl.StripeWebhook(ctx))

	assert.Equal(t, http.StatusUnauthorized, ctx.status)
}

func TestStripeWebhook_IgnoresOtherEvents(t *testing.T) {
	secret := "whsec_test"
	h := newHarness(secret)
	body := stripeSessionBody(t, "invoice.paid", "in_test_1", uuid.New(), "intermediate", "1")

	ctx := &paymentContext{
		rawBody: body,
		headers: map[string]string{payment.SignatureHeader: signBody(secret, body)},
	}
	require.NoError(t, h.ctrl.StripeWebhook(ctx))

	assert.Equal(t, http.StatusOK, ctx.status)
	assert.Empty(t, h.repo.created)
}

func TestStripeWebhook_RetryIsIdempotent(t *testing.T) {
	secret := "whsec_test"
	h := newHarness(secret)
	userID := uuid.New()

	body := stripeSessionBody(t, "checkout.session.completed", "cs_test_4", userID, "advanced", "1")
	sig := signBody(secret, body)

	first := &paymentContext{rawBody: body, headers: map[string]string{payment.SignatureHeader: sig}}
	require.NoError(t, h.ctrl.StripeWebhook(first))
	require.Equal(t, http.StatusOK, first.status)
	require.Equal(t, 1, h.users.applyCalls)

	second := &paymentContext{rawBody: body, headers: map[string]string{payment.SignatureHeader: sig}}
	require.NoError(t, h.ctrl.StripeWebhook(second))

	assert.Equal(t, http.StatusOK, second.status)
	assert.Len(t, h.repo.created, 1)
	assert.Equal(t, 1, h.users.applyCalls)
}

func TestStripeWebhook_DurationDefaultsToOneMonth(t *testing.T) {
	secret := "whsec_test"
	h := newHarness(secret)

	body := stripeSessionBody(t, "checkout.session.completed", "cs_test_5", uuid.New(), "intermediate", "")
	ctx := &paymentContext{
		rawBody: body,
		headers: map[string]string{payment.SignatureHeader: signBody(secret, body)},
	}
	require.NoError(t, h.ctrl.StripeWebhook(ctx))

	require.Equal(t, http.StatusOK, ctx.status)
	require.Len(t, h.repo.created, 1)
	assert.Equal(t, 1, h.repo.created[0].DurationMonths)
}

func TestStripeWebhook_BadMetadata(t *testing.T) {
	secret := "whsec_test"
	h := newHarness(secret)

	body := jsonBody(t, map[string]any{
		"type": "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":       "cs_test_6",
				"metadata": map[string]any{"userId": "nope", "tier": "intermediate"},
			},
		},
	})
	ctx := &paymentContext{
		rawBody: body,
		headers: map[string]string{payment.SignatureHeader: signBody(secret, body)},
	}
	require.NoError(t, h.ctrl.StripeWebhook(ctx))

	assert.Equal(t, http.StatusBadRequest, ctx.status)
}

func TestApplySubscriptionHandler_RejectsFreeTier(t *testing.T) {
	users := &fakeUsers{}
	handler := payment.NewApplySubscriptionHandler(users)

	err := handler.ApplySubscription(context.Background(), payment.ApplySubscriptionMessage{
		UserID:         uuid.New(),
		Tier:           auth.TierBasics,
		DurationMonths: 1,
	})

	require.Error(t, err)
	assert.Zero(t, users.applyCalls)
}

func TestApplySubscriptionHandler_EmitsActivity(t *testing.T) {
	users := &fakeUsers{}
	var events []auth.ActivityEvent
	sink := auth.ActivitySinkFunc(func(_ context.Context, event auth.ActivityEvent) error {
		events = append(events, event)
		return nil
	})
	handler := payment.NewApplySubscriptionHandler(users).WithActivitySink(sink)

	userID := uuid.New()
	require.NoError(t, handler.ApplySubscription(context.Background(), payment.ApplySubscriptionMessage{
		UserID:         userID,
		Tier:           auth.TierIntermediate,
		DurationMonths: 1,
	}))

	require.Len(t, events, 1)
	assert.Equal(t, auth.ActivityEventSubscriptionSet, events[0].EventType)
	assert.Equal(t, userID.String(), events[0].UserID)
}
