package classes

import (
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ClassStatus tracks a live class through its lifecycle
type ClassStatus string

const (
	StatusScheduled ClassStatus = "scheduled"
	StatusOngoing   ClassStatus = "ongoing"
	StatusCompleted ClassStatus = "completed"
	StatusCancelled ClassStatus = "cancelled"
)

func (s ClassStatus) IsValid() bool {
	switch s {
	case StatusScheduled, StatusOngoing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// LiveClass is a scheduled live session tied to a subscription tier
type LiveClass struct {
	bun.BaseModel        `bun:"table:live_classes,alias:cls"`
	ID                   uuid.UUID             `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CourseID             uuid.UUID             `bun:"course_id,nullzero,type:uuid" json:"courseId,omitempty"`
	Title                string                `bun:"title,notnull" json:"title"`
	Description          string                `bun:"description" json:"description,omitempty"`
	InstructorID         uuid.UUID             `bun:"instructor_id,notnull,type:uuid" json:"instructorId"`
	Tier                 auth.SubscriptionTier `bun:"tier,notnull" json:"tier"`
	MeetingID            string                `bun:"meeting_id,notnull,unique" json:"meetingId"`
	JoinURL              string                `bun:"join_url,notnull" json:"joinUrl"`
	Passcode             string                `bun:"passcode" json:"passcode,omitempty"`
	ScheduledAt          time.Time             `bun:"scheduled_at,notnull" json:"scheduledAt"`
	DurationMins         int                   `bun:"duration_mins,notnull" json:"durationMins"`
	MaxParticipants      int                   `bun:"max_participants" json:"maxParticipants,omitempty"`
	EnrolledParticipants int                   `bun:"enrolled_participants" json:"enrolledParticipants"`
	Status               ClassStatus           `bun:"status,notnull" json:"status"`
	CreatedAt            *time.Time            `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt            *time.Time            `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}
