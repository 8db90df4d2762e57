package course

import (
	"context"

	"github.com/collegia/collegia/auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// ListLimit caps the course listing page size
const ListLimit = 50

type Courses interface {
	// TEMP-VALIDATION repository.Repository[*Course]

	ListPublished(ctx context.Context, tier auth.SubscriptionTier) ([]*Course, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Course, error)
	Create(ctx context.Context, record *Course, criteria ...repository.InsertCriteria) (*Course, error)
	Update(ctx context.Context, record *Course, criteria ...repository.UpdateCriteria) (*Course, error)
}

type courses struct {
	repository.Repository[*Course]
	db *bun.DB
}

var _ Courses = (*courses)(nil) // TEMP-VALIDATION

func NewCoursesRepository(db *bun.DB) Courses {
	repo := repository.NewRepository[*Course](db, repository.ModelHandlers[*Course]{
		NewRecord: func() *Course { return &Course{} },
		GetID: func(c *Course) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Course, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "slug"
		},
	})

	return &courses{
		Repository: repo,
		db:         db,
	}
}

// ListPublished returns published courses ordered by popularity. An empty
// tier lists every tier.
func (r *courses) ListPublished(ctx context.Context, tier auth.SubscriptionTier) ([]*Course, error) {
	records := []*Course{}

	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.is_published = ?", true)

	if tier != "" {
		q = q.Where("?TableAlias.tier = ?", tier)
	}

	err := q.
		OrderExpr("?TableAlias.enrolled_count DESC").
		Limit(ListLimit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *courses) Create(ctx context.Context, record *Course, criteria ...repository.InsertCriteria) (*Course, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, r.db, record, criteria...)
}

func (r *courses) Update(ctx context.Context, record *Course, criteria ...repository.UpdateCriteria) (*Course, error) {
	criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	return r.Repository.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *courses) GetByID(ctx context.Context, id uuid.UUID) (*Course, error) {
	record := &Course{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}
