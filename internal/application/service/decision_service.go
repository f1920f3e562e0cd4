package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/garyjia/invoice-reimbursement/pkg/utils"
)

// WorkbookWriter renders ledger entries as a spreadsheet
type WorkbookWriter interface {
	Write(w io.Writer, entries []*entity.DecisionEntry) error
}

// DecisionService reads the decision ledger
type DecisionService interface {
	ListDecisions(ctx context.Context, filter port.DecisionFilter) ([]*entity.DecisionEntry, error)
	GetDecision(ctx context.Context, invoiceID string) (*entity.DecisionEntry, error)
	ExportDecisions(ctx context.Context, w io.Writer, filter port.DecisionFilter) (int, error)
}

type decisionServiceImpl struct {
	repo   port.DecisionRepository
	writer WorkbookWriter
	logger Logger
}

// NewDecisionService creates a new DecisionService
func NewDecisionService(repo port.DecisionRepository, writer WorkbookWriter, logger Logger) DecisionService {
	return &decisionServiceImpl{
		repo:   repo,
		writer: writer,
		logger: logger,
	}
}

// ListDecisions returns ledger entries matching filter, newest first
func (s *decisionServiceImpl) ListDecisions(ctx context.Context, filter port.DecisionFilter) ([]*entity.DecisionEntry, error) {
	filter, err := normalizeDecisionFilter(filter)
	if err != nil {
		return nil, err
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("Failed to list decisions", "error", err)
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	if entries == nil {
		entries = []*entity.DecisionEntry{}
	}
	return entries, nil
}

// GetDecision returns one ledger entry; port.ErrNotFound when absent
func (s *decisionServiceImpl) GetDecision(ctx context.Context, invoiceID string) (*entity.DecisionEntry, error) {
	invoiceID = strings.TrimSpace(invoiceID)
	if invoiceID == "" {
		return nil, fmt.Errorf("%w: invoice id is required", ErrInvalidInput)
	}
	entry, err := s.repo.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get decision: %w", err)
	}
	return entry, nil
}

// ExportDecisions writes the matching entries as a workbook and returns how many were written
func (s *decisionServiceImpl) ExportDecisions(ctx context.Context, w io.Writer, filter port.DecisionFilter) (int, error) {
	entries, err := s.ListDecisions(ctx, filter)
	if err != nil {
		return 0, err
	}
	if err := s.writer.Write(w, entries); err != nil {
		s.logger.Error("Failed to export decisions", "error", err)
		return 0, fmt.Errorf("export decisions: %w", err)
	}

	s.logger.Info("Decisions exported", "rows", len(entries))
	return len(entries), nil
}

func normalizeDecisionFilter(filter port.DecisionFilter) (port.DecisionFilter, error) {
	filter.Employee = strings.TrimSpace(filter.Employee)
	filter.Category = strings.TrimSpace(filter.Category)
	if filter.Status != "" {
		status, err := entity.ParseStatus(string(filter.Status))
		if err != nil {
			return filter, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		filter.Status = status
	}
	for _, amount := range []float64{filter.MinReimbursedAmount, filter.MinRequestedAmount} {
		if err := utils.ValidateAmount(amount); err != nil {
			return filter, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
	}
	if filter.Limit < 0 || filter.Offset < 0 {
		return filter, fmt.Errorf("%w: limit and offset must not be negative", ErrInvalidInput)
	}
	return filter, nil
}
