package chat

import (
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/collegia/collegia/auth"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// RegisterChatRoutes mounts the chat API. The limiter runs on the post
// route only, reading a message history is never throttled.
func RegisterChatRoutes[T any](app router.Router[T], controller *Controller, limiter router.MiddlewareFunc) {
	post := controller.PostMessage
	if limiter != nil {
		post = limiter(post)
	}

	app.Post("/api/chat/messages", post).
		SetName("api.chat.post")
	app.Get("/api/chat/:courseId", controller.History).
		SetName("api.chat.history")
}

type Controller struct {
	Logger auth.Logger
	Repo   Messages
}

func NewController(repo Messages, logger auth.Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		Logger: logger,
		Repo:   repo,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// PostMessagePayload is the message create payload
type PostMessagePayload struct {
	CourseID string `json:"courseId"`
	Message  string `json:"message"`
}

// Validate will validate the payload
func (r PostMessagePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CourseID, validation.Required, is.UUID),
		validation.Field(&r.Message, validation.Required, validation.Length(1, MaxMessageLength)),
	)
}

// PostMessage handles POST /api/chat/messages. The sender comes from the
// verified access claims, never from the payload.
func (c *Controller) PostMessage(ctx router.Context) error {
	claims, ok := auth.GetRouterClaims(ctx)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	payload := new(PostMessagePayload)
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

	courseID, err := uuid.Parse(payload.CourseID)
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid course id",
		})
	}

	userID, err := uuid.Parse(claims.UserID())
	if err != nil {
		return ctx.JSON(http.StatusUnauthorized, map[string]any{
			"error": "authentication required",
		})
	}

	record := &Message{
		ID:       uuid.New(),
		CourseID: courseID,
		UserID:   userID,
		Username: DisplayName(claims.Email),
		Body:     payload.Message,
	}

	created, err := c.Repo.Create(ctx.Context(), record)
	if err != nil {
		c.Logger.Error("chat message create failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to post message",
		})
	}

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"message": created,
	})
}

// History handles GET /api/chat/:courseId
func (c *Controller) History(ctx router.Context) error {
	courseID, err := uuid.Parse(ctx.Param("courseId", ""))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid course id",
		})
	}

	records, err := c.Repo.ListByCourse(ctx.Context(), courseID)
	if err != nil {
		c.Logger.Error("chat history query failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to load messages",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"messages": records,
	})
}

// DisplayName derives a chat handle from the account email, everything
// before the "@".
func DisplayName(email string) string {
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
