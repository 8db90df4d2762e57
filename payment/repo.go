package payment

import (
	"context"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type Payments interface {
	repository.Repository[*Payment]

	Create(ctx context.Context, record *Payment, criteria ...repository.InsertCriteria) (*Payment, error)
	Update(ctx context.Context, record *Payment, criteria ...repository.UpdateCriteria) (*Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error)
	GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*Payment, error)
}

type payments struct {
	repository.Repository[*Payment]
	db *bun.DB
}

var _ Payments = (*payments)(nil)

func NewPaymentsRepository(db *bun.DB) Payments {
	repo := repository.NewRepository[*Payment](db, repository.ModelHandlers[*Payment]{
		NewRecord: func() *Payment { return &Payment{} },
		GetID: func(p *Payment) uuid.UUID {
			if p == nil {
				return uuid.Nil
			}
			return p.ID
		},
		SetID: func(p *Payment, id uuid.UUID) {
			if p != nil {
				p.ID = id
			}
		},
		GetIdentifier: func() string {
			return "transaction_id"
		},
	})

	return &payments{
		Repository: repo,
		db:         db,
	}
}

func (r *payments) Create(ctx context.Context, record *Payment, criteria ...repository.InsertCriteria) (*Payment, error) {
	if record != nil && record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.CreateTx(ctx, r.db, record, criteria...)
}

func (r *payments) Update(ctx context.Context, record *Payment, criteria ...repository.UpdateCriteria) (*Payment, error) {
	criteria = append(criteria, repository.UpdateByID(record.ID.String()))
	return r.Repository.UpdateTx(ctx, r.db, record, criteria...)
}

func (r *payments) GetByTransactionID(ctx context.Context, transactionID string) (*Payment, error) {
	return r.getBy(ctx, "?TableAlias.transaction_id = ?", transactionID)
}

func (r *payments) GetByCheckoutRequestID(ctx context.Context, checkoutRequestID string) (*Payment, error) {
	return r.getBy(ctx, "?TableAlias.checkout_request_id = ?", checkoutRequestID)
}

func (r *payments) getBy(ctx context.Context, where, value string) (*Payment, error) {
	record := &Payment{}
	err := r.db.NewSelect().
		Model(record).
		Where(where, value).
		Limit(1).
		Scan(ctx)

	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"value": value})
		}
		return nil, err
	}

	return record, nil
}
