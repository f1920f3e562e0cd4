package ai

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrEmptyResponse is returned by the completion step when the model answers with nothing
var ErrEmptyResponse = errors.New("empty response from completion service")

// AnalyzerOptions tunes a single analysis call
type AnalyzerOptions struct {
	// Timeout bounds the completion call. Zero means no timeout beyond ctx.
	Timeout time.Duration
}

// Analyzer turns a policy and an invoice into a DecisionRecord with one completion call
type Analyzer struct {
	client  port.CompletionClient
	prompts *PromptConfig
	opts    AnalyzerOptions
	logger  *zap.Logger
}

// NewAnalyzer creates a new Analyzer. A nil prompts value uses DefaultPrompts.
func NewAnalyzer(client port.CompletionClient, prompts *PromptConfig, opts AnalyzerOptions, logger *zap.Logger) *Analyzer {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		client:  client,
		prompts: prompts,
		opts:    opts,
		logger:  logger,
	}
}

type analysisPromptData struct {
	PolicyText  string
	InvoiceText string
}

// Analyze never returns an error. Completion failures, timeouts and empty
// answers all produce the Declined fallback record with the cause in Reason.
func (a *Analyzer) Analyze(ctx context.Context, policyText, invoiceText string) entity.DecisionRecord {
	start := time.Now()
	raw, err := a.complete(ctx, policyText, invoiceText)
	AnalysisDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		a.logger.Warn("Invoice analysis failed, using fallback decision",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		AnalysisTotal.WithLabelValues("fallback").Inc()
		return entity.FallbackDecision(err)
	}

	record, issues := ParseDetailed(raw)
	for _, issue := range issues {
		ParseIssuesTotal.WithLabelValues(string(issue)).Inc()
	}
	if len(issues) > 0 {
		a.logger.Warn("Analysis response was not fully parseable",
			zap.Strings("issues", issueStrings(issues)),
			zap.String("status", record.Status.String()))
	}

	AnalysisTotal.WithLabelValues("parsed").Inc()
	a.logger.Info("Invoice analysis completed",
		zap.String("status", record.Status.String()),
		zap.String("category", record.Category),
		zap.Float64("requested_amount", record.RequestedAmount),
		zap.Float64("reimbursed_amount", record.ReimbursedAmount),
		zap.Duration("elapsed", time.Since(start)))

	return record
}

func (a *Analyzer) complete(ctx context.Context, policyText, invoiceText string) (string, error) {
	prompt := a.prompts.Analysis
	userPrompt, err := renderTemplate(prompt.UserTemplate, analysisPromptData{
		PolicyText:  policyText,
		InvoiceText: invoiceText,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render analysis prompt: %w", err)
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	raw, err := a.client.Complete(ctx, port.CompletionRequest{
		System:      prompt.System,
		User:        userPrompt,
		Temperature: prompt.Temperature,
		MaxTokens:   prompt.MaxTokens,
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(raw) == "" {
		return "", ErrEmptyResponse
	}
	return raw, nil
}

func issueStrings(issues []ParseIssue) []string {
	out := make([]string, len(issues))
	for i, issue := range issues {
		out[i] = string(issue)
	}
	return out
}

// NewInvoiceID returns a fresh identifier of the form "inv-" followed by 16 hex digits
func NewInvoiceID() string {
	id := uuid.New()
	return "inv-" + hex.EncodeToString(id[:8])
}
