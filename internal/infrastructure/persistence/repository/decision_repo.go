package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"go.uber.org/zap"
)

const maxListLimit = 1000

var decisionColumns = []string{
	"invoice_id", "employee", "source_file", "status", "category", "model_category",
	"requested_amount", "reimbursed_amount", "detected_amount", "reason",
	"policy_references", "created_at",
}

// DecisionRepository implements port.DecisionRepository on SQLite
type DecisionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision repository
func NewDecisionRepository(db *sql.DB, logger *zap.Logger) *DecisionRepository {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a ledger entry. A second entry for the same invoice id
// returns port.ErrDuplicateID.
func (r *DecisionRepository) Create(ctx context.Context, entry *entity.DecisionEntry) error {
	refs := entry.PolicyReferences
	if refs == nil {
		refs = []string{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to encode policy references: %w", err)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query, args, err := sq.Insert("decisions").
		Columns(decisionColumns...).
		Values(
			entry.InvoiceID,
			entry.Employee,
			entry.SourceFile,
			string(entry.Status),
			entry.Category,
			entry.ModelCategory,
			entry.RequestedAmount,
			entry.ReimbursedAmount,
			entry.DetectedAmount,
			entry.Reason,
			string(refsJSON),
			entry.CreatedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("decision %s: %w", entry.InvoiceID, port.ErrDuplicateID)
		}
		r.logger.Error("Failed to create decision",
			zap.String("invoice_id", entry.InvoiceID),
			zap.Error(err))
		return fmt.Errorf("failed to create decision: %w", err)
	}
	return nil
}

// GetByID retrieves a ledger entry by invoice id
func (r *DecisionRepository) GetByID(ctx context.Context, invoiceID string) (*entity.DecisionEntry, error) {
	query, args, err := sq.Select(decisionColumns...).
		From("decisions").
		Where(sq.Eq{"invoice_id": invoiceID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	entry, err := scanDecision(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decision %s: %w", invoiceID, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get decision", zap.String("invoice_id", invoiceID), zap.Error(err))
		return nil, fmt.Errorf("failed to get decision: %w", err)
	}
	return entry, nil
}

// List returns entries matching filter, newest first
func (r *DecisionRepository) List(ctx context.Context, filter port.DecisionFilter) ([]*entity.DecisionEntry, error) {
	builder := sq.Select(decisionColumns...).
		From("decisions").
		OrderBy("created_at DESC", "invoice_id")

	eq := sq.Eq{}
	if filter.Employee != "" {
		eq["employee"] = filter.Employee
	}
	if filter.Status != "" {
		eq["status"] = string(filter.Status)
	}
	if filter.Category != "" {
		eq["category"] = filter.Category
	}
	if len(eq) > 0 {
		builder = builder.Where(eq)
	}
	if filter.MinReimbursedAmount > 0 {
		builder = builder.Where(sq.GtOrEq{"reimbursed_amount": filter.MinReimbursedAmount})
	}
	if filter.MinRequestedAmount > 0 {
		builder = builder.Where(sq.GtOrEq{"requested_amount": filter.MinRequestedAmount})
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	builder = builder.Limit(uint64(limit))
	if filter.Offset > 0 {
		builder = builder.Offset(uint64(filter.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var entries []*entity.DecisionEntry
	for rows.Next() {
		entry, err := scanDecision(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDecision(row rowScanner) (*entity.DecisionEntry, error) {
	var entry entity.DecisionEntry
	var status, refsJSON string

	err := row.Scan(
		&entry.InvoiceID,
		&entry.Employee,
		&entry.SourceFile,
		&status,
		&entry.Category,
		&entry.ModelCategory,
		&entry.RequestedAmount,
		&entry.ReimbursedAmount,
		&entry.DetectedAmount,
		&entry.Reason,
		&refsJSON,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	entry.Status = entity.ReimbursementStatus(status)
	if err := json.Unmarshal([]byte(refsJSON), &entry.PolicyReferences); err != nil {
		return nil, fmt.Errorf("invalid policy_references for %s: %w", entry.InvoiceID, err)
	}
	if entry.PolicyReferences == nil {
		entry.PolicyReferences = []string{}
	}
	return &entry, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Verify interface compliance
var _ port.DecisionRepository = (*DecisionRepository)(nil)
