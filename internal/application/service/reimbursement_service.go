package service

import (
	"context"
	"fmt"
	"path"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/garyjia/invoice-reimbursement/internal/extraction"
	"github.com/garyjia/invoice-reimbursement/pkg/utils"
)

// AnalyzeBatchRequest is one employee's submission: a policy and a ZIP of invoices
type AnalyzeBatchRequest struct {
	EmployeeName   string
	PolicyFilename string
	PolicyPDF      []byte
	ZipFilename    string
	InvoicesZip    []byte
}

// InvoiceResult is the outcome for one analysed invoice
type InvoiceResult struct {
	InvoiceID        string   `json:"invoice_id"`
	Filename         string   `json:"filename"`
	Status           string   `json:"status"`
	Category         string   `json:"category"`
	RequestedAmount  float64  `json:"requested_amount"`
	ReimbursedAmount float64  `json:"reimbursed_amount"`
	Reason           string   `json:"reason"`
	PolicyReferences []string `json:"policy_references"`
}

// SkippedInvoice is an archive entry that had no extractable text
type SkippedInvoice struct {
	Filename string `json:"filename"`
	Reason   string `json:"reason"`
}

// FailedInvoice is an invoice that was analysed but could not be stored
type FailedInvoice struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

// BatchResult summarises an AnalyzeBatch call. ProcessedInvoices counts Results.
type BatchResult struct {
	ProcessedInvoices int              `json:"processed_invoices"`
	Results           []InvoiceResult  `json:"results"`
	Skipped           []SkippedInvoice `json:"skipped"`
	Failed            []FailedInvoice  `json:"failed"`
}

// ReimbursementService analyses invoice batches against a policy
type ReimbursementService interface {
	AnalyzeBatch(ctx context.Context, req AnalyzeBatchRequest) (*BatchResult, error)
}

// ReimbursementDeps are the collaborators of the reimbursement service.
// Ledger and Archiver are optional.
type ReimbursementDeps struct {
	Extractor port.TextExtractor
	Analyzer  DecisionAnalyzer
	Index     DecisionIndex
	Ledger    port.DecisionRepository
	Archiver  port.InvoiceArchiver
	Limits    extraction.ArchiveLimits
	NewID     func() string
}

type reimbursementServiceImpl struct {
	deps   ReimbursementDeps
	logger Logger
}

// NewReimbursementService creates a new ReimbursementService
func NewReimbursementService(deps ReimbursementDeps, logger Logger) ReimbursementService {
	if deps.NewID == nil {
		deps.NewID = ai.NewInvoiceID
	}
	return &reimbursementServiceImpl{
		deps:   deps,
		logger: logger,
	}
}

// AnalyzeBatch validates the submission, then analyses each invoice in
// archive order. Invoices without text are skipped; storage failures are
// recorded per invoice and the batch continues.
func (s *reimbursementServiceImpl) AnalyzeBatch(ctx context.Context, req AnalyzeBatchRequest) (*BatchResult, error) {
	employee, err := utils.ValidateEmployeeName(req.EmployeeName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := utils.ValidateFileExtension(req.PolicyFilename, ".pdf"); err != nil {
		return nil, fmt.Errorf("%w: policy file must be PDF", ErrInvalidInput)
	}
	if err := utils.ValidateFileExtension(req.ZipFilename, ".zip"); err != nil {
		return nil, fmt.Errorf("%w: invoices must be in ZIP file", ErrInvalidInput)
	}
	if len(req.PolicyPDF) == 0 {
		return nil, fmt.Errorf("%w: policy PDF is empty", ErrInvalidInput)
	}
	if len(req.InvoicesZip) == 0 {
		return nil, fmt.Errorf("%w: invoices ZIP is empty", ErrInvalidInput)
	}

	policyText, err := s.deps.Extractor.ExtractText(ctx, req.PolicyPDF)
	if err != nil {
		return nil, fmt.Errorf("%w: could not extract text from policy PDF: %v", ErrInvalidInput, err)
	}

	invoices, err := extraction.ReadInvoiceArchive(req.InvoicesZip, s.deps.Limits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if len(invoices) == 0 {
		return nil, fmt.Errorf("%w: no PDF invoices found in ZIP file", ErrInvalidInput)
	}

	s.logger.Info("Analyzing invoice batch",
		"employee", employee,
		"invoices", len(invoices),
		"policy_chars", len(policyText))

	result := &BatchResult{
		Results: []InvoiceResult{},
		Skipped: []SkippedInvoice{},
		Failed:  []FailedInvoice{},
	}

	for _, invoice := range invoices {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.processInvoice(ctx, employee, policyText, invoice, result)
	}
	result.ProcessedInvoices = len(result.Results)

	s.logger.Info("Invoice batch completed",
		"employee", employee,
		"processed", result.ProcessedInvoices,
		"skipped", len(result.Skipped),
		"failed", len(result.Failed))

	return result, nil
}

func (s *reimbursementServiceImpl) processInvoice(ctx context.Context, employee, policyText string, invoice extraction.ArchiveEntry, result *BatchResult) {
	filename := path.Base(invoice.Name)
	if invoice.Err != nil {
		s.logger.Warn("Skipping unreadable invoice", "filename", filename, "error", invoice.Err)
		result.Skipped = append(result.Skipped, SkippedInvoice{Filename: filename, Reason: invoice.Err.Error()})
		return
	}

	invoiceText, err := s.deps.Extractor.ExtractText(ctx, invoice.Data)
	if err != nil {
		s.logger.Warn("Skipping invoice without text", "filename", filename, "error", err)
		result.Skipped = append(result.Skipped, SkippedInvoice{Filename: filename, Reason: err.Error()})
		return
	}

	record := s.deps.Analyzer.Analyze(ctx, policyText, invoiceText)
	invoiceID := s.deps.NewID()

	doc, err := s.deps.Index.StoreDecision(ctx, invoiceID, employee, record)
	if err != nil {
		s.logger.Error("Failed to store decision", "invoice_id", invoiceID, "filename", filename, "error", err)
		result.Failed = append(result.Failed, FailedInvoice{Filename: filename, Error: err.Error()})
		return
	}

	s.recordLedger(ctx, doc, record, filename, invoiceText)
	s.archive(ctx, employee, invoiceID, invoice.Data)

	result.Results = append(result.Results, InvoiceResult{
		InvoiceID:        invoiceID,
		Filename:         filename,
		Status:           record.Status.String(),
		Category:         doc.Metadata.Category,
		RequestedAmount:  record.RequestedAmount,
		ReimbursedAmount: record.ReimbursedAmount,
		Reason:           record.Reason,
		PolicyReferences: record.PolicyReferences,
	})
}

// recordLedger copies a stored decision into the SQL ledger. The index is the
// record of truth, so a ledger failure is logged and not reported.
func (s *reimbursementServiceImpl) recordLedger(ctx context.Context, doc *entity.IndexedDocument, record entity.DecisionRecord, filename, invoiceText string) {
	if s.deps.Ledger == nil {
		return
	}
	entry := &entity.DecisionEntry{
		InvoiceID:        doc.ID,
		Employee:         doc.Employee,
		SourceFile:       filename,
		Status:           record.Status,
		Category:         doc.Metadata.Category,
		ModelCategory:    record.Category,
		RequestedAmount:  record.RequestedAmount,
		ReimbursedAmount: record.ReimbursedAmount,
		DetectedAmount:   extraction.InvoiceTotal(invoiceText),
		Reason:           record.Reason,
		PolicyReferences: record.PolicyReferences,
		CreatedAt:        doc.Timestamp.UTC(),
	}
	if err := s.deps.Ledger.Create(ctx, entry); err != nil {
		s.logger.Error("Failed to record decision in ledger", "invoice_id", doc.ID, "error", err)
	}
}

func (s *reimbursementServiceImpl) archive(ctx context.Context, employee, invoiceID string, content []byte) {
	if s.deps.Archiver == nil {
		return
	}
	if _, err := s.deps.Archiver.Archive(ctx, employee, invoiceID, content); err != nil {
		s.logger.Error("Failed to archive invoice", "invoice_id", invoiceID, "error", err)
	}
}
