package classes

import (
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/collegia/collegia/auth"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterClassRoutes mounts the live class API
func RegisterClassRoutes[T any](app router.Router[T], controller *Controller) {
	app.Get("/api/classes", controller.List).
		SetName("api.classes.list")
	app.Post("/api/classes/schedule", controller.Schedule).
		SetName("api.classes.schedule")
}

type Controller struct {
	Logger   auth.Logger
	Repo     LiveClasses
	Provider MeetingProvider
}

func NewController(repo LiveClasses, provider MeetingProvider, logger auth.Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		Logger:   logger,
		Repo:     repo,
		Provider: provider,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// List handles GET /api/classes. Students see the classes their
// subscription tier grants, instructors and admins see everything.
func (c *Controller) List(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	tier := claims.Subscription.Tier
	if claims.Role().CanPublishCourses() {
		tier = ""
	}

	records, err := c.Repo.ListUpcoming(ctx.Context(), tier)
	if err != nil {
		c.Logger.Error("class list query failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to list classes",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"classes": records,
	})
}

// SchedulePayload is the class scheduling payload
type SchedulePayload struct {
	CourseID        string                `json:"courseId"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Tier            auth.SubscriptionTier `json:"tier"`
	ScheduledAt     time.Time             `json:"scheduledAt"`
	DurationMins    int                   `json:"durationMins"`
	MaxParticipants int                   `json:"maxParticipants"`
}

// Validate will validate the payload
func (r SchedulePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Tier, validation.Required, validation.In(
			auth.TierBasics,
			auth.TierIntermediate,
			auth.TierAdvanced,
		)),
		validation.Field(&r.ScheduledAt, validation.Required),
		validation.Field(&r.DurationMins, validation.Required, validation.Min(15), validation.Max(240)),
		validation.Field(&r.MaxParticipants, validation.Min(0), validation.Max(1000)),
	)
}

// Schedule handles POST /api/classes/schedule, restricted to
// instructors and admins. Booking the meeting room happens before the
// row insert so a provider failure leaves no orphan class.
func (c *Controller) Schedule(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	if !claims.Role().CanPublishCourses() {
		return ctx.JSON(http.StatusForbidden, map[string]any{
			"error": "instructor role required",
		})
	}

	payload := new(SchedulePayload)
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

	if payload.ScheduledAt.Before(time.Now()) {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "class must be scheduled in the future",
		})
	}

	instructorID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	meeting, err := c.Provider.CreateMeeting(ctx.Context(), payload.Title)
	if err != nil {
		c.Logger.Error("meeting booking failed", "error", err)
		return ctx.JSON(http.StatusBadGateway, map[string]any{
			"error": "conferencing provider unavailable",
		})
	}

	record := &LiveClass{
		ID:              uuid.New(),
		Title:           payload.Title,
		Description:     payload.Description,
		InstructorID:    instructorID,
		Tier:            payload.Tier,
		MeetingID:       meeting.MeetingID,
		JoinURL:         meeting.JoinURL,
		Passcode:        meeting.Passcode,
		ScheduledAt:     payload.ScheduledAt,
		DurationMins:    payload.DurationMins,
		MaxParticipants: payload.MaxParticipants,
		Status:          StatusScheduled,
	}

	if payload.CourseID != "" {
		courseID, err := uuid.Parse(payload.CourseID)
		if err != nil {
			return ctx.JSON(http.StatusBadRequest, map[string]any{
				"error": "invalid course id",
			})
		}
		record.CourseID = courseID
	}

	created, err := c.Repo.Create(ctx.Context(), record)
	if err != nil {
		c.Logger.Error("class create failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to schedule class",
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"class":   created,
	})
}
