package service

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/garyjia/invoice-reimbursement/internal/retrieval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func sampleHits() []retrieval.Hit {
	return []retrieval.Hit{
		{
			ID:           "inv-1",
			DocumentText: "Invoice Analysis for Asha:\nStatus: Declined",
			Metadata: entity.DocumentMetadata{
				Employee: "Asha", Status: entity.StatusDeclined,
				Date: "2026-03-01T10:00:00.000000Z", Category: entity.CategoryFood,
				RequestedAmount: 900,
			},
			Score: 0.9,
		},
	}
}

func TestChat_NormalizesFiltersAndListsHits(t *testing.T) {
	index := &MockIndex{}
	index.On("Search", mock.Anything, "declined meals", retrieval.Filters{
		entity.MetaStatus:          "Partially Reimbursed",
		entity.MetaEmployee:        "Asha",
		entity.MetaRequestedAmount: "500",
	}, 3).Return(sampleHits(), nil)

	svc := NewQueryService(index, nil, &mockLogger{})
	history := []entity.ChatTurn{{Role: entity.RoleUser, Content: "hello"}}

	resp, err := svc.Chat(context.Background(), ChatRequest{
		Query:   "  declined meals ",
		History: history,
		Filters: map[string]string{
			"Status":           "partially",
			"employee":         " Asha ",
			"requested_amount": "500",
			"category":         "",
		},
		Limit: 3,
	})
	require.NoError(t, err)

	assert.Contains(t, resp.Response, "Found 1 matching invoices:\n\nDocument 1:\nInvoice Analysis for Asha:")
	assert.Contains(t, resp.Response, `"requested_amount":"900.0"`)
	assert.Len(t, resp.Results, 1)
	assert.Equal(t, []entity.ChatTurn{
		{Role: entity.RoleUser, Content: "hello"},
		{Role: entity.RoleAssistant, Content: "declined meals"},
	}, resp.Context)
	// caller's history is not modified
	assert.Len(t, history, 1)
	index.AssertExpectations(t)
}

func TestChat_Validation(t *testing.T) {
	svc := NewQueryService(&MockIndex{}, nil, &mockLogger{})

	tests := []struct {
		name string
		req  ChatRequest
	}{
		{name: "short query", req: ChatRequest{Query: "hi"}},
		{name: "negative limit", req: ChatRequest{Query: "cab rides", Limit: -1}},
		{name: "unknown filter", req: ChatRequest{Query: "cab rides", Filters: map[string]string{"vendor": "Uber"}}},
		{name: "bad status", req: ChatRequest{Query: "cab rides", Filters: map[string]string{"status": "approved"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Chat(context.Background(), tt.req)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestChat_SearchErrorPropagates(t *testing.T) {
	index := &MockIndex{}
	index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, retrieval.ErrInvalidFilter)

	svc := NewQueryService(index, nil, &mockLogger{})
	_, err := svc.Chat(context.Background(), ChatRequest{Query: "cab rides", Filters: map[string]string{"reimbursed_amount": "lots"}})
	assert.ErrorIs(t, err, retrieval.ErrInvalidFilter)
	assert.True(t, IsInputError(err))
}

func TestChat_UsesAnswerer(t *testing.T) {
	index := &MockIndex{}
	index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(sampleHits(), nil)

	answerer := &MockAnswerer{}
	answerer.On("Answer", mock.Anything, "why declined", []entity.ChatTurn{},
		[]ai.ChatSource{{ID: "inv-1", DocumentText: sampleHits()[0].DocumentText}}).
		Return("It was declined because of alcohol.", nil)

	svc := NewQueryService(index, answerer, &mockLogger{})
	resp, err := svc.Chat(context.Background(), ChatRequest{Query: "why declined"})
	require.NoError(t, err)
	assert.Equal(t, "It was declined because of alcohol.", resp.Response)
	answerer.AssertExpectations(t)
}

func TestChat_AnswererFailureFallsBackToListing(t *testing.T) {
	index := &MockIndex{}
	index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(sampleHits(), nil)
	answerer := &MockAnswerer{}
	answerer.On("Answer", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", errBoom)

	svc := NewQueryService(index, answerer, &mockLogger{})
	resp, err := svc.Chat(context.Background(), ChatRequest{Query: "why declined"})
	require.NoError(t, err)
	assert.Contains(t, resp.Response, "Found 1 matching invoices")
}

func TestChat_NoHitsSkipsAnswerer(t *testing.T) {
	index := &MockIndex{}
	index.On("Search", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]retrieval.Hit{}, nil)
	answerer := &MockAnswerer{}

	svc := NewQueryService(index, answerer, &mockLogger{})
	resp, err := svc.Chat(context.Background(), ChatRequest{Query: "anything at all"})
	require.NoError(t, err)
	assert.Equal(t, "Found 0 matching invoices:\n\n", resp.Response)
	answerer.AssertNotCalled(t, "Answer", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecisionService(t *testing.T) {
	repo := &MockDecisionRepository{}
	entries := []*entity.DecisionEntry{{InvoiceID: "inv-1"}, {InvoiceID: "inv-2"}}
	repo.On("List", mock.Anything, port.DecisionFilter{Employee: "Asha", Status: entity.StatusDeclined}).Return(entries, nil)
	repo.On("List", mock.Anything, port.DecisionFilter{}).Return(nil, nil)
	repo.On("GetByID", mock.Anything, "inv-1").Return(entries[0], nil)
	repo.On("GetByID", mock.Anything, "inv-x").Return(nil, port.ErrNotFound)

	writer := &stubWriter{}
	svc := NewDecisionService(repo, writer, &mockLogger{})
	ctx := context.Background()

	got, err := svc.ListDecisions(ctx, port.DecisionFilter{Employee: " Asha ", Status: "declined"})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	empty, err := svc.ListDecisions(ctx, port.DecisionFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	_, err = svc.ListDecisions(ctx, port.DecisionFilter{Status: "maybe"})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ListDecisions(ctx, port.DecisionFilter{MinRequestedAmount: -5})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = svc.ListDecisions(ctx, port.DecisionFilter{MinReimbursedAmount: math.NaN()})
	assert.ErrorIs(t, err, ErrInvalidInput)

	entry, err := svc.GetDecision(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", entry.InvoiceID)

	_, err = svc.GetDecision(ctx, "inv-x")
	assert.ErrorIs(t, err, port.ErrNotFound)
	_, err = svc.GetDecision(ctx, " ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	var buf bytes.Buffer
	n, err := svc.ExportDecisions(ctx, &buf, port.DecisionFilter{Employee: "Asha", Status: entity.StatusDeclined})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, writer.rows)
	assert.Equal(t, "xlsx", buf.String())

	failing := NewDecisionService(repo, &stubWriter{err: errBoom}, &mockLogger{})
	_, err = failing.ExportDecisions(ctx, &buf, port.DecisionFilter{})
	assert.ErrorIs(t, err, errBoom)
}
