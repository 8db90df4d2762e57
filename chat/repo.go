package chat

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// HistoryLimit caps how many messages a history fetch returns
const HistoryLimit = 50

type Messages interface {
	repository.Repository[*Message]

	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*Message, error)
	Create(ctx context.Context, record *Message, criteria ...repository.InsertCriteria) (*Message, error)
}

type messages struct {
	repository.Repository[*Message]
	db *bun.DB
}

var _ Messages = (*messages)(nil)

func NewMessagesRepository(db *bun.DB) Messages {
	repo := repository.NewRepository[*Message](db, repository.ModelHandlers[*Message]{
		NewRecord: func() *Message { return &Message{} },
		GetID: func(m *Message) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *Message, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
		GetIdentifier: func() string {
			return ""
		},
	})

	return &messages{
		Repository: repo,
		db:         db,
	}
}

// ListByCourse returns the most recent visible messages for a course,
// newest first.
func (r *messages) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]*Message, error) {
	records := []*Message{}

	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.course_id = ?", courseID).
		Where("?TableAlias.is_deleted = ?", false).
		OrderExpr("?TableAlias.created_at DESC").
		Limit(HistoryLimit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *messages) Create(ctx context.Context, record *Message, criteria ...repository.InsertCriteria) (*Message, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, r.db, record, criteria...)
}
