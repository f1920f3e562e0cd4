package service

import (
	"context"
	"errors"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/garyjia/invoice-reimbursement/internal/retrieval"
)

// ErrInvalidInput is returned when a request fails validation before any work is done
var ErrInvalidInput = errors.New("invalid input")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DecisionAnalyzer produces a decision for one invoice. Implementations
// never fail; problems are reported through the returned record.
type DecisionAnalyzer interface {
	Analyze(ctx context.Context, policyText, invoiceText string) entity.DecisionRecord
}

// DecisionIndex is the retrieval store as seen by the services
type DecisionIndex interface {
	StoreDecision(ctx context.Context, id, employee string, record entity.DecisionRecord) (*entity.IndexedDocument, error)
	Search(ctx context.Context, query string, filters retrieval.Filters, limit int) ([]retrieval.Hit, error)
}

// IsInputError reports whether err was caused by an invalid request
func IsInputError(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, retrieval.ErrInvalidFilter)
}

func trimmedLower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
