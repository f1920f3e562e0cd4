// Package retrieval stores analysed decisions in a vector index and answers
// hybrid semantic + metadata queries over them.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("invoice-reimbursement.retrieval")

var (
	// ErrInvalidFilter is returned when an amount filter is not a number
	ErrInvalidFilter = errors.New("invalid search filter")

	// ErrInvalidDocument is returned when Store is called without an id or text
	ErrInvalidDocument = errors.New("invalid document")
)

// numericFilterKeys are compared as thresholds (stored value >= filter) rather than by equality
var numericFilterKeys = map[string]bool{
	entity.MetaReimbursedAmount: true,
	entity.MetaRequestedAmount:  true,
}

// Filters maps metadata keys to the value a hit must carry. Amount keys are
// minimum thresholds; every other key is an exact match.
type Filters map[string]string

// Hit is one search result
type Hit struct {
	ID           string                  `json:"invoice_id"`
	DocumentText string                  `json:"document"`
	Metadata     entity.DocumentMetadata `json:"metadata"`
	Score        float32                 `json:"score"`
}

// Options configures a Store
type Options struct {
	// DefaultLimit applies when Search is called with limit <= 0
	DefaultLimit int
	// Now stamps new documents; defaults to time.Now
	Now func() time.Time
}

// Store is the retrieval layer over a port.VectorIndex. It keeps no state of
// its own and is safe for concurrent use when the index is.
type Store struct {
	index  port.VectorIndex
	opts   Options
	logger *zap.Logger
}

// NewStore creates a new Store
func NewStore(index port.VectorIndex, opts Options, logger *zap.Logger) *Store {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = entity.DefaultSearchLimit
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{index: index, opts: opts, logger: logger}
}

// Store appends one document. It fails with port.ErrDuplicateID when id is taken.
func (s *Store) Store(ctx context.Context, id, documentText string, meta entity.DocumentMetadata) error {
	ctx, span := tracer.Start(ctx, "retrieval.Store", trace.WithAttributes(
		attribute.String("document_id", id),
		attribute.String("employee", meta.Employee),
	))
	defer span.End()

	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidDocument)
	}
	if strings.TrimSpace(documentText) == "" {
		return fmt.Errorf("%w: empty document text for %s", ErrInvalidDocument, id)
	}

	err := s.index.Add(ctx, []string{id}, []string{documentText}, []map[string]string{meta.ToIndexMap()})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if errors.Is(err, port.ErrDuplicateID) {
			StoreWritesTotal.WithLabelValues("duplicate").Inc()
		} else {
			StoreWritesTotal.WithLabelValues("error").Inc()
		}
		return fmt.Errorf("storing document %s: %w", id, err)
	}

	StoreWritesTotal.WithLabelValues("success").Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Debug("Stored decision document",
		zap.String("document_id", id),
		zap.String("status", meta.Status.String()),
		zap.String("category", meta.Category))
	return nil
}

// StoreDecision renders and stores a decision analysed for employee, stamping it with the current time
func (s *Store) StoreDecision(ctx context.Context, id, employee string, record entity.DecisionRecord) (*entity.IndexedDocument, error) {
	now := s.opts.Now()
	doc := &entity.IndexedDocument{
		ID:           id,
		Employee:     employee,
		Timestamp:    now,
		DocumentText: RenderDocumentText(employee, record),
		Metadata:     BuildMetadata(employee, record, now),
	}
	if err := s.Store(ctx, doc.ID, doc.DocumentText, doc.Metadata); err != nil {
		return nil, err
	}
	return doc, nil
}

// Search ranks documents by similarity to query. Equality filters restrict the
// index query itself; amount thresholds are then applied to the returned
// candidates only, so a search never returns more than limit hits and may
// return fewer than limit even if more qualifying documents exist.
func (s *Store) Search(ctx context.Context, query string, filters Filters, limit int) ([]Hit, error) {
	if limit <= 0 {
		limit = s.opts.DefaultLimit
	}

	where, thresholds, err := splitFilters(filters)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "retrieval.Search", trace.WithAttributes(
		attribute.Int("limit", limit),
		attribute.Int("equality_filters", len(where)),
		attribute.Int("numeric_filters", len(thresholds)),
	))
	defer span.End()

	SearchTotal.WithLabelValues(strconv.FormatBool(len(thresholds) > 0)).Inc()

	candidates, err := s.index.Query(ctx, query, where, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("querying index: %w", err)
	}

	hits := make([]Hit, 0, len(candidates))
	for _, c := range candidates {
		meta, metaErr := entity.MetadataFromIndex(c.Metadata)
		if metaErr != nil {
			s.logger.Warn("Stored document has unreadable metadata",
				zap.String("document_id", c.ID),
				zap.Error(metaErr))
			if len(thresholds) > 0 {
				SearchDroppedTotal.Inc()
				continue
			}
		}

		if !meetsThresholds(meta, thresholds) {
			SearchDroppedTotal.Inc()
			continue
		}

		hits = append(hits, Hit{
			ID:           c.ID,
			DocumentText: c.Document,
			Metadata:     meta,
			Score:        c.Score,
		})
	}

	span.SetAttributes(
		attribute.Int("candidates", len(candidates)),
		attribute.Int("results", len(hits)),
	)
	span.SetStatus(codes.Ok, "searched")

	s.logger.Debug("Searched decisions",
		zap.String("query", query),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(hits)))

	return hits, nil
}

// splitFilters separates equality filters from amount thresholds
func splitFilters(filters Filters) (map[string]string, map[string]float64, error) {
	where := make(map[string]string)
	thresholds := make(map[string]float64)

	for key, value := range filters {
		if !numericFilterKeys[key] {
			where[key] = value
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s must be a number, got %q", ErrInvalidFilter, key, value)
		}
		thresholds[key] = v
	}
	return where, thresholds, nil
}

// meetsThresholds reports whether every threshold is <= the document's amount
func meetsThresholds(meta entity.DocumentMetadata, thresholds map[string]float64) bool {
	for key, threshold := range thresholds {
		amount, _ := meta.Amount(key)
		if amount < threshold {
			return false
		}
	}
	return true
}
