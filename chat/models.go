package chat

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// MaxMessageLength caps a single chat message
const MaxMessageLength = 500

// Message is one entry in a course chat room
type Message struct {
	bun.BaseModel `bun:"table:chat_messages,alias:msg"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	CourseID      uuid.UUID  `bun:"course_id,notnull,type:uuid" json:"courseId"`
	UserID        uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"userId"`
	Username      string     `bun:"username,notnull" json:"username"`
	Body          string     `bun:"message,notnull" json:"message"`
	IsEdited      bool       `bun:"is_edited" json:"isEdited"`
	IsDeleted     bool       `bun:"is_deleted" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updatedAt,omitempty"`
}
