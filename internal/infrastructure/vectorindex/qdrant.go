package vectorindex

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

const (
	payloadDocumentID = "document_id"
	payloadContent    = "content"

	defaultMaxMessageSize = 50 * 1024 * 1024
)

// pointNamespace derives stable Qdrant point UUIDs from invoice ids
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("invoice-reimbursement/decisions"))

// QdrantConfig configures the remote index
type QdrantConfig struct {
	Host       string
	Port       int
	UseTLS     bool
	APIKey     string
	Collection string
}

// QdrantIndex is an append-only port.VectorIndex backed by a Qdrant collection
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	embedder   port.Embedder
	logger     *zap.Logger

	mu sync.Mutex
}

var _ port.VectorIndex = (*QdrantIndex)(nil)

// NewQdrantIndex connects to Qdrant and creates the collection when it is missing
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, embedder port.Embedder, logger *zap.Logger) (*QdrantIndex, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection name is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.UseTLS {
		logger.Warn("Qdrant gRPC connection is plaintext", zap.String("host", cfg.Host))
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
		GrpcOptions: []grpc.DialOption{
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(defaultMaxMessageSize),
				grpc.MaxCallSendMsgSize(defaultMaxMessageSize),
			),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrIndexUnavailable, err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		embedder:   embedder,
		logger:     logger,
	}
	if err := idx.ensureCollection(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}

	logger.Info("Qdrant index initialized",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("collection", cfg.Collection))
	return idx, nil
}

func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("%w: checking collection %s: %v", port.ErrIndexUnavailable, q.collection, err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(q.embedder.Dimension()),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", q.collection, err)
	}
	q.logger.Info("Created Qdrant collection",
		zap.String("collection", q.collection),
		zap.Int("vector_size", q.embedder.Dimension()))
	return nil
}

// pointID maps an arbitrary document id to the UUID Qdrant requires
func pointID(id string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(pointNamespace, []byte(id)).String())
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func buildPayload(id, document string, metadata map[string]string) map[string]*qdrant.Value {
	payload := make(map[string]*qdrant.Value, len(metadata)+2)
	for k, v := range metadata {
		payload[k] = stringValue(v)
	}
	payload[payloadDocumentID] = stringValue(id)
	payload[payloadContent] = stringValue(document)
	return payload
}

func buildFilter(where map[string]string) *qdrant.Filter {
	if len(where) == 0 {
		return nil
	}
	conditions := make([]*qdrant.Condition, 0, len(where))
	for k, v := range where {
		conditions = append(conditions, &qdrant.Condition{
			ConditionOneOf: &qdrant.Condition_Field{
				Field: &qdrant.FieldCondition{
					Key: k,
					Match: &qdrant.Match{
						MatchValue: &qdrant.Match_Keyword{Keyword: v},
					},
				},
			},
		})
	}
	return &qdrant.Filter{Must: conditions}
}

// splitPayload separates the stored id and text from the metadata fields
func splitPayload(payload map[string]*qdrant.Value) (id, document string, metadata map[string]string) {
	metadata = make(map[string]string, len(payload))
	for k, v := range payload {
		s := v.GetStringValue()
		switch k {
		case payloadDocumentID:
			id = s
		case payloadContent:
			document = s
		default:
			metadata[k] = s
		}
	}
	return id, document, metadata
}

// Add rejects the whole batch if any id is already stored
func (q *QdrantIndex) Add(ctx context.Context, ids, documents []string, metadatas []map[string]string) error {
	if len(ids) != len(documents) || len(ids) != len(metadatas) {
		return fmt.Errorf("ids, documents and metadatas must have equal length (%d, %d, %d)", len(ids), len(documents), len(metadatas))
	}
	if len(ids) == 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	pointIDs := make([]*qdrant.PointId, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		if seen[id] {
			return fmt.Errorf("%w: %s (repeated in batch)", port.ErrDuplicateID, id)
		}
		seen[id] = true
		pointIDs[i] = pointID(id)
	}

	existing, err := q.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: q.collection,
		Ids:            pointIDs,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return fmt.Errorf("%w: checking existing points: %v", port.ErrIndexUnavailable, err)
	}
	if len(existing) > 0 {
		dupID, _, _ := splitPayload(existing[0].GetPayload())
		return fmt.Errorf("%w: %s", port.ErrDuplicateID, dupID)
	}

	embeddings, err := q.embedder.EmbedDocuments(ctx, documents)
	if err != nil {
		return fmt.Errorf("embedding documents: %w", err)
	}

	points := make([]*qdrant.PointStruct, len(ids))
	for i := range ids {
		points[i] = &qdrant.PointStruct{
			Id:      pointIDs[i],
			Vectors: qdrant.NewVectors(embeddings[i]...),
			Payload: buildPayload(ids[i], documents[i], metadatas[i]),
		}
	}

	_, err = q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("upserting points to collection %s: %w", q.collection, err)
	}
	return nil
}

// Query runs a filtered nearest-neighbour search
func (q *QdrantIndex) Query(ctx context.Context, queryText string, where map[string]string, nResults int) ([]port.IndexResult, error) {
	if nResults <= 0 {
		return nil, fmt.Errorf("nResults must be positive, got %d", nResults)
	}

	vector, err := q.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Filter:         buildFilter(where),
		Limit:          qdrant.PtrOf(uint64(nResults)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("querying collection %s: %w", q.collection, err)
	}

	out := make([]port.IndexResult, 0, len(points))
	for _, p := range points {
		id, document, metadata := splitPayload(p.GetPayload())
		out = append(out, port.IndexResult{
			ID:       id,
			Document: document,
			Metadata: metadata,
			Score:    p.GetScore(),
		})
	}
	return out, nil
}

// Count returns the exact number of stored points
func (q *QdrantIndex) Count(ctx context.Context) (int, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(n), nil
}

// Close closes the gRPC connection
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
