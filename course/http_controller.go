package course

import (
	"encoding/json"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/collegia/collegia/auth"
	"github.com/collegia/collegia/cache"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

// ListCacheTTL is how long a course listing stays cached
const ListCacheTTL = 300 * time.Second

// CacheKeyPrefix namespaces the listing cache keys
const CacheKeyPrefix = "courses:list"

// RegisterCourseRoutes mounts the course API
func RegisterCourseRoutes[T any](app router.Router[T], controller *Controller) {
	app.Get("/api/courses", controller.List).
		SetName("api.courses.list")
	app.Get("/api/courses/:id", controller.Show).
		SetName("api.courses.show")
	app.Post("/api/courses", controller.Create).
		SetName("api.courses.create")
	app.Put("/api/courses/:id", controller.Update).
		SetName("api.courses.update")
}

type Controller struct {
	Logger auth.Logger
	Repo   Courses
	Cache  cache.Cache
}

func NewController(repo Courses, store cache.Cache, logger auth.Logger) *Controller {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Controller{
		Logger: logger,
		Repo:   repo,
		Cache:  store,
	}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// ListCacheKey builds the cache key for a tier-filtered listing
func ListCacheKey(tier auth.SubscriptionTier) string {
	if tier == "" {
		return CacheKeyPrefix + ":all"
	}
	return CacheKeyPrefix + ":" + string(tier)
}

// List handles GET /api/courses?tier=. Cache-aside: a cache hit serves
// the stored payload, a miss or any cache failure falls through to the
// database and repopulates best-effort.
func (c *Controller) List(ctx router.Context) error {
	tierParam := ctx.Query("tier", "")

	var tier auth.SubscriptionTier
	if tierParam != "" {
		parsed, ok := auth.ParseTier(tierParam)
		if !ok {
			return ctx.JSON(http.StatusBadRequest, map[string]any{
				"error": "invalid tier",
			})
		}
		tier = parsed
	}

	key := ListCacheKey(tier)

	if cached, ok, err := c.Cache.Get(ctx.Context(), key); err != nil {
		c.Logger.Warn("course list cache read failed, falling back to database", "key", key, "error", err)
	} else if ok {
		records := []*Course{}
		if err := json.Unmarshal([]byte(cached), &records); err == nil {
			return ctx.JSON(http.StatusOK, map[string]any{
				"courses": records,
				"cached":  true,
			})
		}
		c.Logger.Warn("course list cache entry corrupt, evicting", "key", key)
		_ = c.Cache.Del(ctx.Context(), key)
	}

	records, err := c.Repo.ListPublished(ctx.Context(), tier)
	if err != nil {
		c.Logger.Error("course list query failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to list courses",
		})
	}

	if payload, err := json.Marshal(records); err == nil {
		if err := c.Cache.Set(ctx.Context(), key, string(payload), ListCacheTTL); err != nil {
			c.Logger.Warn("course list cache write failed", "key", key, "error", err)
		}
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"courses": records,
		"cached":  false,
	})
}

// Show handles GET /api/courses/:id
func (c *Controller) Show(ctx router.Context) error {
	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid course id",
		})
	}

	record, err := c.Repo.GetByID(ctx.Context(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ctx.JSON(http.StatusNotFound, map[string]any{
				"error": "course not found",
			})
		}
		c.Logger.Error("course get query failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to load course",
		})
	}

	return ctx.JSON(http.StatusOK, map[string]any{
		"course": record,
	})
}

// UpsertCoursePayload is the create/update payload
type UpsertCoursePayload struct {
	Title        string                `json:"title"`
	Slug         string                `json:"slug"`
	Description  string                `json:"description"`
	Tier         auth.SubscriptionTier `json:"tier"`
	Thumbnail    string                `json:"thumbnail"`
	Syllabus     []SyllabusItem        `json:"syllabus"`
	TotalLessons int                   `json:"totalLessons"`
	IsPublished  bool                  `json:"isPublished"`
}

// Validate will validate the payload
func (r UpsertCoursePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Slug, validation.Required, validation.Length(2, 200)),
		validation.Field(&r.Tier, validation.Required, validation.By(validTier)),
	)
}

func validTier(value any) error {
	tier, _ := value.(auth.SubscriptionTier)
	if !tier.IsValid() {
		return goerrors.New("must be one of basics, intermediate, advanced", goerrors.CategoryValidation)
	}
	return nil
}

// Create handles POST /api/courses, restricted to instructors and admins
func (c *Controller) Create(ctx router.Context) error {
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

	payload := new(UpsertCoursePayload)
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

	instructorID, _ := uuid.Parse(claims.UserID())
	record := &Course{
		ID:           uuid.New(),
		Title:        payload.Title,
		Slug:         payload.Slug,
		Description:  payload.Description,
		Tier:         payload.Tier,
		InstructorID: instructorID,
		Thumbnail:    payload.Thumbnail,
		Syllabus:     payload.Syllabus,
		TotalLessons: payload.TotalLessons,
		IsPublished:  payload.IsPublished,
	}

	created, err := c.Repo.Create(ctx.Context(), record)
	if err != nil {
		c.Logger.Error("course create failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to create course",
		})
	}

	c.invalidateListings(ctx, created.Tier)

	return ctx.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"course":  created,
	})
}

// Update handles PUT /api/courses/:id, restricted to instructors and admins
func (c *Controller) Update(ctx router.Context) error {
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

	id, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, map[string]any{
			"error": "invalid course id",
		})
	}

	existing, err := c.Repo.GetByID(ctx.Context(), id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ctx.JSON(http.StatusNotFound, map[string]any{
				"error": "course not found",
			})
		}
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to load course",
		})
	}

	payload := new(UpsertCoursePayload)
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

	previousTier := existing.Tier

	existing.Title = payload.Title
	existing.Slug = payload.Slug
	existing.Description = payload.Description
	existing.Tier = payload.Tier
	existing.Thumbnail = payload.Thumbnail
	existing.Syllabus = payload.Syllabus
	existing.TotalLessons = payload.TotalLessons
	existing.IsPublished = payload.IsPublished

	updated, err := c.Repo.Update(ctx.Context(), existing)
	if err != nil {
		c.Logger.Error("course update failed", "error", err)
		return ctx.JSON(http.StatusInternalServerError, map[string]any{
			"error": "failed to update course",
		})
	}

	c.invalidateListings(ctx, previousTier, updated.Tier)

	return ctx.JSON(http.StatusOK, map[string]any{
		"success": true,
		"course":  updated,
	})
}

// invalidateListings drops the affected tier keys plus the unfiltered
// listing. Eviction failures only shorten cache freshness, never the
// request.
func (c *Controller) invalidateListings(ctx router.Context, tiers ...auth.SubscriptionTier) {
	keys := []string{ListCacheKey("")}
	seen := map[auth.SubscriptionTier]bool{}
	for _, tier := range tiers {
		if tier == "" || seen[tier] {
			continue
		}
		seen[tier] = true
		keys = append(keys, ListCacheKey(tier))
	}

	if err := c.Cache.Del(ctx.Context(), keys...); err != nil {
		c.Logger.Warn("course cache invalidation failed", "error", err)
	}
}
