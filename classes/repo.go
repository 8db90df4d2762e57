package classes

import (
	"context"
	"time"

	"github.com/collegia/collegia/auth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UpcomingLimit caps the upcoming classes listing
const UpcomingLimit = 20

type LiveClasses interface {
	repository.Repository[*LiveClass]

	ListUpcoming(ctx context.Context, tier auth.SubscriptionTier) ([]*LiveClass, error)
	Create(ctx context.Context, record *LiveClass, criteria ...repository.InsertCriteria) (*LiveClass, error)
	Update(ctx context.Context, record *LiveClass, criteria ...repository.UpdateCriteria) (*LiveClass, error)
}

type liveClasses struct {
	repository.Repository[*LiveClass]
	db *bun.DB
}

var _ LiveClasses = (*liveClasses)(nil)

func NewLiveClassesRepository(db *bun.DB) LiveClasses {
	repo := repository.NewRepository[*LiveClass](db, repository.ModelHandlers[*LiveClass]{
		NewRecord: func() *LiveClass { return &LiveClass{} },
		GetID: func(c *LiveClass) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *LiveClass, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "meeting_id"
		},
	})

	return &liveClasses{
		Repository: repo,
		db:         db,
	}
}

// ListUpcoming returns scheduled classes from now on, soonest first. A
// tier filters to classes the subscription grants, an empty tier lists
// everything.
func (r *liveClasses) ListUpcoming(ctx context.Context, tier auth.SubscriptionTier) ([]*LiveClass, error) {
	records := []*LiveClass{}

	q := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.status = ?", StatusScheduled).
		Where("?TableAlias.scheduled_at >= ?", time.Now())

	if tier != "" {
		tiers := []auth.SubscriptionTier{}
		for _, candidate := range []auth.SubscriptionTier{
			auth.TierBasics,
			auth.TierIntermediate,
			auth.TierAdvanced,
		} {
			if tier.Includes(candidate) {
				tiers = append(tiers, candidate)
			}
		}
		q = q.Where("?TableAlias.tier IN (?)", bun.In(tiers))
	}

	err := q.
		OrderExpr("?TableAlias.scheduled_at ASC").
		Limit(UpcomingLimit).
		Scan(ctx)

	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *liveClasses) Create(ctx context.Context, record *LiveClass, criteria ...repository.InsertCriteria) (*LiveClass, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, r.db, record, criteria...)
}

func (r *liveClasses) Update(ctx context.Context, record *LiveClass, criteria ...repository.UpdateCriteria) (*LiveClass, error) {
	criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	return r.Repository.UpdateTx(ctx, r.db, record, criteria...)
}
