package retrieval

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/invoice-reimbursement/internal/ai"
	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
)

// timestampLayout is ISO-8601 with microseconds
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// RenderDocumentText renders the text that is embedded and returned for a decision
func RenderDocumentText(employee string, record entity.DecisionRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Invoice Analysis for %s:\n", employee)
	fmt.Fprintf(&b, "Status: %s\n", record.Status)
	fmt.Fprintf(&b, "Amount Requested: ₹%s\n", entity.FormatAmount(record.RequestedAmount))
	fmt.Fprintf(&b, "Amount Reimbursed: ₹%s\n", entity.FormatAmount(record.ReimbursedAmount))
	fmt.Fprintf(&b, "Reason: %s\n", record.Reason)
	fmt.Fprintf(&b, "Policy References: %s", strings.Join(record.PolicyReferences, ", "))
	return b.String()
}

// BuildMetadata derives the indexed metadata of a decision written at ts
func BuildMetadata(employee string, record entity.DecisionRecord, ts time.Time) entity.DocumentMetadata {
	return entity.DocumentMetadata{
		Employee:         employee,
		Status:           record.Status,
		Date:             ts.Format(timestampLayout),
		ReimbursedAmount: record.ReimbursedAmount,
		RequestedAmount:  record.RequestedAmount,
		Category:         ai.MetadataCategory(record),
	}
}
