package service

import (
	"context"
	"errors"
	"io"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/application/port"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/garyjia/invoice-reimbursement/internal/extraction"
	"github.com/garyjia/invoice-reimbursement/internal/retrieval"
	"github.com/stretchr/testify/mock"
)

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// fakeExtractor treats file content as its own text; "" and "scan" have none
type fakeExtractor struct{}

func (f *fakeExtractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	switch string(data) {
	case "", "scan":
		return "", extraction.ErrNoText
	}
	return string(data), nil
}

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, policyText, invoiceText string) entity.DecisionRecord {
	args := m.Called(ctx, policyText, invoiceText)
	return args.Get(0).(entity.DecisionRecord)
}

type MockIndex struct {
	mock.Mock
}

func (m *MockIndex) StoreDecision(ctx context.Context, id, employee string, record entity.DecisionRecord) (*entity.IndexedDocument, error) {
	args := m.Called(ctx, id, employee, record)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.IndexedDocument), args.Error(1)
}

func (m *MockIndex) Search(ctx context.Context, query string, filters retrieval.Filters, limit int) ([]retrieval.Hit, error) {
	args := m.Called(ctx, query, filters, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]retrieval.Hit), args.Error(1)
}

type MockDecisionRepository struct {
	mock.Mock
}

func (m *MockDecisionRepository) Create(ctx context.Context, entry *entity.DecisionEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *MockDecisionRepository) GetByID(ctx context.Context, invoiceID string) (*entity.DecisionEntry, error) {
	args := m.Called(ctx, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.DecisionEntry), args.Error(1)
}

func (m *MockDecisionRepository) List(ctx context.Context, filter port.DecisionFilter) ([]*entity.DecisionEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.DecisionEntry), args.Error(1)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Archive(ctx context.Context, employee, invoiceID string, content []byte) (string, error) {
	args := m.Called(ctx, employee, invoiceID, content)
	return args.String(0), args.Error(1)
}

type MockAnswerer struct {
	mock.Mock
}

func (m *MockAnswerer) Answer(ctx context.Context, query string, history []entity.ChatTurn, sources []ai.ChatSource) (string, error) {
	args := m.Called(ctx, query, history, sources)
	return args.String(0), args.Error(1)
}

type stubWriter struct {
	rows int
	err  error
}

func (s *stubWriter) Write(w io.Writer, entries []*entity.DecisionEntry) error {
	if s.err != nil {
		return s.err
	}
	s.rows = len(entries)
	_, err := w.Write([]byte("xlsx"))
	return err
}

var errBoom = errors.New("boom")
