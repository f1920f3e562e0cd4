package entity

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ReimbursementStatus is the outcome of analysing one invoice
type ReimbursementStatus string

const (
	StatusFullyReimbursed     ReimbursementStatus = "Fully Reimbursed"
	StatusPartiallyReimbursed ReimbursementStatus = "Partially Reimbursed"
	StatusDeclined            ReimbursementStatus = "Declined"
)

// String implements fmt.Stringer
func (s ReimbursementStatus) String() string {
	return string(s)
}

// Valid reports whether s is one of the three known statuses
func (s ReimbursementStatus) Valid() bool {
	switch s {
	case StatusFullyReimbursed, StatusPartiallyReimbursed, StatusDeclined:
		return true
	}
	return false
}

// ParseStatus normalises user supplied spellings such as "fully",
// "PARTIALLY REIMBURSED" or "declined" to a ReimbursementStatus.
func ParseStatus(s string) (ReimbursementStatus, error) {
	normalized := strings.ToLower(strings.Join(strings.Fields(s), " "))
	normalized = strings.TrimSuffix(normalized, " reimbursed")

	switch normalized {
	case "fully":
		return StatusFullyReimbursed, nil
	case "partially":
		return StatusPartiallyReimbursed, nil
	case "declined":
		return StatusDeclined, nil
	}
	return "", fmt.Errorf("unknown reimbursement status %q", s)
}

// DecisionRecord is the structured result of analysing one invoice against a policy
type DecisionRecord struct {
	Category         string              `json:"category"`
	Status           ReimbursementStatus `json:"status"`
	ReimbursedAmount float64             `json:"reimbursed_amount"`
	RequestedAmount  float64             `json:"requested_amount"`
	Reason           string              `json:"reason"`
	PolicyReferences []string            `json:"policy_references"`
}

// FallbackDecision is the record reported when analysis could not complete
func FallbackDecision(err error) DecisionRecord {
	return DecisionRecord{
		Category:         CategoryUnknown,
		Status:           StatusDeclined,
		Reason:           AnalysisFailedPrefix + err.Error(),
		PolicyReferences: []string{},
	}
}

// IsFallback reports whether the record was produced by FallbackDecision
func (d DecisionRecord) IsFallback() bool {
	return d.Status == StatusDeclined && strings.HasPrefix(d.Reason, AnalysisFailedPrefix)
}

// DocumentMetadata is the typed form of the metadata attached to an indexed decision.
// Amounts are numeric here and only rendered to strings at the index boundary.
type DocumentMetadata struct {
	Employee         string              `json:"employee"`
	Status           ReimbursementStatus `json:"status"`
	Date             string              `json:"date"`
	ReimbursedAmount float64             `json:"reimbursed_amount"`
	RequestedAmount  float64             `json:"requested_amount"`
	Category         string              `json:"category"`
}

// ToIndexMap renders metadata as the flat string map stored by the vector index
func (m DocumentMetadata) ToIndexMap() map[string]string {
	return map[string]string{
		MetaEmployee:         m.Employee,
		MetaStatus:           string(m.Status),
		MetaDate:             m.Date,
		MetaReimbursedAmount: FormatAmount(m.ReimbursedAmount),
		MetaRequestedAmount:  FormatAmount(m.RequestedAmount),
		MetaCategory:         m.Category,
	}
}

// MetadataFromIndex decodes an index metadata map. Amount fields that are
// missing or not numeric are reported as an error.
func MetadataFromIndex(raw map[string]string) (DocumentMetadata, error) {
	meta := DocumentMetadata{
		Employee: raw[MetaEmployee],
		Status:   ReimbursementStatus(raw[MetaStatus]),
		Date:     raw[MetaDate],
		Category: raw[MetaCategory],
	}

	var err error
	if meta.ReimbursedAmount, err = ParseAmount(raw[MetaReimbursedAmount]); err != nil {
		return meta, fmt.Errorf("%s: %w", MetaReimbursedAmount, err)
	}
	if meta.RequestedAmount, err = ParseAmount(raw[MetaRequestedAmount]); err != nil {
		return meta, fmt.Errorf("%s: %w", MetaRequestedAmount, err)
	}
	return meta, nil
}

// Amount returns the numeric metadata field addressed by key
func (m DocumentMetadata) Amount(key string) (float64, bool) {
	switch key {
	case MetaReimbursedAmount:
		return m.ReimbursedAmount, true
	case MetaRequestedAmount:
		return m.RequestedAmount, true
	}
	return 0, false
}

// FormatAmount renders an amount as the shortest decimal that round-trips,
// always keeping a fractional part: 2000 -> "2000.0", 2500.5 -> "2500.5".
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}

// ParseAmount parses an amount rendered by FormatAmount
func ParseAmount(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// IndexedDocument is a decision as persisted in the retrieval index
type IndexedDocument struct {
	ID           string           `json:"id"`
	Employee     string           `json:"employee"`
	Timestamp    time.Time        `json:"timestamp"`
	DocumentText string           `json:"document_text"`
	Metadata     DocumentMetadata `json:"metadata"`
}

// DecisionEntry is the relational ledger copy of a stored decision
type DecisionEntry struct {
	InvoiceID        string              `json:"invoice_id"`
	Employee         string              `json:"employee"`
	SourceFile       string              `json:"source_file"`
	Status           ReimbursementStatus `json:"status"`
	Category         string              `json:"category"`
	ModelCategory    string              `json:"model_category"`
	RequestedAmount  float64             `json:"requested_amount"`
	ReimbursedAmount float64             `json:"reimbursed_amount"`
	DetectedAmount   float64             `json:"detected_amount"`
	Reason           string              `json:"reason"`
	PolicyReferences []string            `json:"policy_references"`
	CreatedAt        time.Time           `json:"created_at"`
}
