package port

import (
	"context"
	"errors"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// DecisionFilter narrows a ledger listing. Zero values mean "no constraint".
type DecisionFilter struct {
	Employee            string
	Status              entity.ReimbursementStatus
	Category            string
	MinReimbursedAmount float64
	MinRequestedAmount  float64
	Limit               int
	Offset              int
}

// DecisionRepository defines persistence operations for the decision ledger
type DecisionRepository interface {
	Create(ctx context.Context, entry *entity.DecisionEntry) error
	GetByID(ctx context.Context, invoiceID string) (*entity.DecisionEntry, error)
	List(ctx context.Context, filter DecisionFilter) ([]*entity.DecisionEntry, error)
}
