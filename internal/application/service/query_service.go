package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/garyjia/invoice-reimbursement/internal/retrieval"
	"github.com/garyjia/invoice-reimbursement/pkg/utils"
)

// filterKeys are the metadata keys a chat request may filter on
var filterKeys = map[string]bool{
	entity.MetaEmployee:         true,
	entity.MetaStatus:           true,
	entity.MetaCategory:         true,
	entity.MetaDate:             true,
	entity.MetaReimbursedAmount: true,
	entity.MetaRequestedAmount:  true,
}

// ChatRequest is a question about stored decisions
type ChatRequest struct {
	Query   string
	History []entity.ChatTurn
	Filters map[string]string
	Limit   int
}

// ChatResponse carries the answer, the hits it was based on, and the updated history
type ChatResponse struct {
	Response string            `json:"response"`
	Results  []retrieval.Hit   `json:"results"`
	Context  []entity.ChatTurn `json:"context"`
}

// ChatAnswerer writes a natural-language answer from retrieved sources
type ChatAnswerer interface {
	Answer(ctx context.Context, query string, history []entity.ChatTurn, sources []ai.ChatSource) (string, error)
}

// QueryService answers questions over analysed invoices
type QueryService interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

type queryServiceImpl struct {
	index    DecisionIndex
	answerer ChatAnswerer
	logger   Logger
}

// NewQueryService creates a new QueryService. A nil answerer lists the
// matching documents instead of asking a model.
func NewQueryService(index DecisionIndex, answerer ChatAnswerer, logger Logger) QueryService {
	return &queryServiceImpl{
		index:    index,
		answerer: answerer,
		logger:   logger,
	}
}

// Chat searches the index and answers from the hits
func (s *queryServiceImpl) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	query, err := utils.ValidateQuery(req.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if req.Limit < 0 {
		return nil, fmt.Errorf("%w: limit must not be negative", ErrInvalidInput)
	}

	filters, err := normalizeFilters(req.Filters)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, query, filters, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("search decisions: %w", err)
	}

	history := req.History
	if history == nil {
		history = []entity.ChatTurn{}
	}

	resp := &ChatResponse{
		Response: s.answer(ctx, query, history, hits),
		Results:  hits,
		Context:  append(append([]entity.ChatTurn{}, history...), entity.ChatTurn{Role: entity.RoleAssistant, Content: query}),
	}

	s.logger.Info("Chat query answered",
		"hits", len(hits),
		"filters", len(filters),
		"model_answer", s.answerer != nil && len(hits) > 0)
	return resp, nil
}

func (s *queryServiceImpl) answer(ctx context.Context, query string, history []entity.ChatTurn, hits []retrieval.Hit) string {
	listing := FormatHitListing(hits)
	if s.answerer == nil || len(hits) == 0 {
		return listing
	}

	sources := make([]ai.ChatSource, len(hits))
	for i, h := range hits {
		sources[i] = ai.ChatSource{ID: h.ID, DocumentText: h.DocumentText}
	}

	answer, err := s.answerer.Answer(ctx, query, history, sources)
	if err != nil {
		s.logger.Warn("Chat model unavailable, returning document listing", "error", err)
		return listing
	}
	return answer
}

// FormatHitListing renders hits as "Found N matching invoices:" followed by
// each document and its metadata.
func FormatHitListing(hits []retrieval.Hit) string {
	blocks := make([]string, len(hits))
	for i, h := range hits {
		meta, err := json.Marshal(h.Metadata.ToIndexMap())
		if err != nil {
			meta = []byte("{}")
		}
		blocks[i] = fmt.Sprintf("Document %d:\n%s\nMetadata: %s", i+1, h.DocumentText, meta)
	}
	return fmt.Sprintf("Found %d matching invoices:\n\n%s", len(hits), strings.Join(blocks, "\n\n"))
}

// normalizeFilters lower-cases keys, drops empty values and rewrites status
// spellings such as "partially" to the stored form.
func normalizeFilters(raw map[string]string) (retrieval.Filters, error) {
	filters := retrieval.Filters{}
	for key, value := range raw {
		key = trimmedLower(key)
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if !filterKeys[key] {
			return nil, fmt.Errorf("%w: unknown filter %q", ErrInvalidInput, key)
		}
		if key == entity.MetaStatus {
			status, err := entity.ParseStatus(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
			}
			value = status.String()
		}
		filters[key] = value
	}
	return filters, nil
}
