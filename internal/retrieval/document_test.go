package retrieval

import (
	"testing"
	"time"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func TestRenderDocumentText(t *testing.T) {
	record := entity.DecisionRecord{
		Category:         "Travel",
		Status:           entity.StatusPartiallyReimbursed,
		RequestedAmount:  2500,
		ReimbursedAmount: 2000,
		Reason:           "Flight exceeds cap",
		PolicyReferences: []string{"Travel 2.1", "Taxes included"},
	}

	expected := "Invoice Analysis for Priya:\n" +
		"Status: Partially Reimbursed\n" +
		"Amount Requested: ₹2500.0\n" +
		"Amount Reimbursed: ₹2000.0\n" +
		"Reason: Flight exceeds cap\n" +
		"Policy References: Travel 2.1, Taxes included"

	assert.Equal(t, expected, RenderDocumentText("Priya", record))
}

func TestBuildMetadata(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 123456000, time.UTC)
	record := entity.DecisionRecord{
		Category:         entity.CategoryUnknown,
		Status:           entity.StatusFullyReimbursed,
		RequestedAmount:  140,
		ReimbursedAmount: 140,
		Reason:           "Taxi ride within the daily cap",
	}

	meta := BuildMetadata("Priya", record, ts)

	assert.Equal(t, "Priya", meta.Employee)
	assert.Equal(t, entity.StatusFullyReimbursed, meta.Status)
	assert.Equal(t, "2025-06-01T12:00:00.123456Z", meta.Date)
	assert.Equal(t, entity.CategoryCab, meta.Category)
	assert.Equal(t, 140.0, meta.ReimbursedAmount)
}
