package vectorindex

import (
	"context"
	"fmt"
	"testing"

	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/infrastructure/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestIndex(t *testing.T, path string) *ChromemIndex {
	t.Helper()
	idx, err := NewChromemIndex(ChromemConfig{Path: path, Collection: "test"}, embedding.NewHashEmbedder(64), zap.NewNop())
	require.NoError(t, err)
	return idx
}

func TestChromemIndex_AddAndQuery(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, "")

	err := idx.Add(ctx,
		[]string{"a", "b", "c"},
		[]string{"flight to delhi declined", "team dinner meal", "flight to pune reimbursed"},
		[]map[string]string{{"status": "Declined"}, {"status": "Declined"}, {"status": "Fully Reimbursed"}},
	)
	require.NoError(t, err)

	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := idx.Query(ctx, "flight to delhi declined", map[string]string{"status": "Declined"}, 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "flight to delhi declined", results[0].Document)
	for _, r := range results {
		assert.Equal(t, "Declined", r.Metadata["status"])
	}
}

func TestChromemIndex_DuplicateIDRejected(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, "")

	require.NoError(t, idx.Add(ctx, []string{"a"}, []string{"first"}, []map[string]string{{"k": "1"}}))

	err := idx.Add(ctx, []string{"b", "a"}, []string{"second", "again"}, []map[string]string{{}, {}})
	assert.ErrorIs(t, err, port.ErrDuplicateID)

	err = idx.Add(ctx, []string{"c", "c"}, []string{"x", "y"}, []map[string]string{{}, {}})
	assert.ErrorIs(t, err, port.ErrDuplicateID)

	// nothing from the rejected batches was written
	count, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	results, err := idx.Query(ctx, "first", nil, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "first", results[0].Document)
	assert.Equal(t, "1", results[0].Metadata["k"])
}

func TestChromemIndex_EmptyCollection(t *testing.T) {
	results, err := newTestIndex(t, "").Query(context.Background(), "anything", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestChromemIndex_ConcurrentAddsOfSameID(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(t, "")

	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func(i int) {
			errs <- idx.Add(ctx, []string{"same"}, []string{fmt.Sprintf("doc %d", i)}, []map[string]string{{}})
		}(i)
	}

	var ok int
	for i := 0; i < 8; i++ {
		if err := <-errs; err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, port.ErrDuplicateID)
		}
	}
	assert.Equal(t, 1, ok)
}

func TestChromemIndex_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	idx := newTestIndex(t, dir)
	require.NoError(t, idx.Add(ctx, []string{"a"}, []string{"cab to office"}, []map[string]string{{"category": "Cab"}}))
	require.NoError(t, idx.Close())

	reopened := newTestIndex(t, dir)
	results, err := reopened.Query(ctx, "cab", map[string]string{"category": "Cab"}, 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)

	err = reopened.Add(ctx, []string{"a"}, []string{"again"}, []map[string]string{{}})
	assert.ErrorIs(t, err, port.ErrDuplicateID)
}

func TestChromemIndex_Validation(t *testing.T) {
	idx := newTestIndex(t, "")
	assert.Error(t, idx.Add(context.Background(), []string{"a"}, nil, nil))

	_, err := idx.Query(context.Background(), "q", nil, 0)
	assert.Error(t, err)

	_, err = NewChromemIndex(ChromemConfig{Collection: "x"}, nil, nil)
	assert.Error(t, err)
}
