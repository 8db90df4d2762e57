package course

import (
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SyllabusItem is one lesson entry in a course syllabus
type SyllabusItem struct {
	LessonNumber int    `json:"lessonNumber"`
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Duration     int    `json:"duration,omitempty"`
}

// Course is the course model
type Course struct {
	bun.BaseModel `bun:"table:courses,alias:crs"`
	ID            uuid.UUID             `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Title         string                `bun:"title,notnull" json:"title"`
	Slug          string                `bun:"slug,notnull,unique" json:"slug"`
	Description   string                `bun:"description" json:"description,omitempty"`
	Tier          auth.SubscriptionTier `bun:"tier,notnull" json:"tier"`
	InstructorID  uuid.UUID             `bun:"instructor_id,nullzero,type:uuid" json:"instructorId,omitempty"`
	Thumbnail     string                `bun:"thumbnail" json:"thumbnail,omitempty"`
	Syllabus      []SyllabusItem        `bun:"syllabus,type:jsonb" json:"syllabus,omitempty"`
	TotalLessons  int                   `bun:"total_lessons" json:"totalLessons"`
	EnrolledCount int                   `bun:"enrolled_count" json:"enrolledCount"`
	AverageRating float64               `bun:"average_rating" json:"averageRating"`
	IsPublished   bool                  `bun:"is_published" json:"isPublished"`
	CreatedAt     *time.Time            `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time            `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
	DeletedAt     *time.Time            `bun:"deleted_at,soft_delete,nullzero" json:"-"`
}
