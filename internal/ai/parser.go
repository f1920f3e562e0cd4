package ai

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
)

// ParseIssue names a field that could not be recovered from an analysis response
type ParseIssue string

const (
	IssueMissingCategory         ParseIssue = "missing_category"
	IssueMissingStatus           ParseIssue = "missing_status"
	IssueUnrecognizedStatus      ParseIssue = "unrecognized_status"
	IssueMissingRequestedAmount  ParseIssue = "missing_requested_amount"
	IssueMissingReimbursedAmount ParseIssue = "missing_reimbursed_amount"
	IssueMissingReason           ParseIssue = "missing_reason"
)

const (
	labelCategory         = "Category"
	labelStatus           = "Status"
	labelRequestedAmount  = "Requested Amount"
	labelReimbursedAmount = "Reimbursed Amount"
	labelReason           = "Reason"
	labelPolicyReferences = "Policy References"
)

var (
	// label lines, tolerating markdown decoration around the label and one
	// qualifying word before it ("Reimbursement Status:", "Expense Category:")
	labelPatterns = map[string]*regexp.Regexp{}

	statusValuePattern   = regexp.MustCompile(`(?i)^(fully|partially|declined)\b`)
	currencyValuePattern = regexp.MustCompile(`(?i)^(?:₹|¥|\$|€|£|rs\.?|inr)[ \t]*(\d[\d,]*(?:\.\d*)?)`)
	bulletPattern        = regexp.MustCompile(`^\s*(?:[-•]|\*\s)\s*(.*\S)\s*$`)
)

func init() {
	for _, label := range []string{
		labelCategory, labelStatus, labelRequestedAmount,
		labelReimbursedAmount, labelReason, labelPolicyReferences,
	} {
		labelPatterns[label] = regexp.MustCompile(
			`(?i)^[ \t>#*_\-\d.)]*(?:[a-z]+[ \t]+)?` + regexp.QuoteMeta(label) + `[ \t*_]*:[ \t*_]*(.*?)[ \t*_]*$`)
	}
}

// Parse converts a raw model response into a DecisionRecord. It never fails:
// every field that cannot be recovered gets its default.
func Parse(raw string) entity.DecisionRecord {
	record, _ := ParseDetailed(raw)
	return record
}

// ParseDetailed is Parse plus the list of fields that fell back to defaults
func ParseDetailed(raw string) (entity.DecisionRecord, []ParseIssue) {
	lines := splitLines(raw)
	var issues []ParseIssue

	category, ok := extractCategory(lines)
	if !ok {
		issues = append(issues, IssueMissingCategory)
	}

	requested, ok := extractAmount(lines, labelRequestedAmount)
	if !ok {
		issues = append(issues, IssueMissingRequestedAmount)
	}

	reimbursed, ok := extractAmount(lines, labelReimbursedAmount)
	if !ok {
		issues = append(issues, IssueMissingReimbursedAmount)
	}

	reason, ok := extractReason(lines)
	if !ok {
		issues = append(issues, IssueMissingReason)
	}

	status, statusIssue, seen := extractStatus(lines)
	if statusIssue != "" {
		issues = append(issues, statusIssue)
		reason = reason + " " + statusFailureNote(statusIssue, seen)
	}

	return entity.DecisionRecord{
		Category:         category,
		Status:           status,
		ReimbursedAmount: reimbursed,
		RequestedAmount:  requested,
		Reason:           reason,
		PolicyReferences: extractPolicyReferences(lines),
	}, issues
}

func statusFailureNote(issue ParseIssue, seen string) string {
	if issue == IssueUnrecognizedStatus {
		return fmt.Sprintf("[unrecognized status %q in analysis response]", seen)
	}
	return "[status missing from analysis response]"
}

func splitLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.Split(raw, "\n")
}

// labelValues returns the index and value of every line carrying label
func labelValues(lines []string, label string) ([]int, []string) {
	pattern := labelPatterns[label]
	var idx []int
	var values []string
	for i, line := range lines {
		if m := pattern.FindStringSubmatch(line); m != nil {
			idx = append(idx, i)
			values = append(values, strings.TrimSpace(m[1]))
		}
	}
	return idx, values
}

func extractCategory(lines []string) (string, bool) {
	_, values := labelValues(lines, labelCategory)
	if len(values) == 0 || values[0] == "" {
		return entity.CategoryUnknown, false
	}
	return values[0], true
}

// extractStatus returns the first recognised status. When none is found the
// issue is set and seen holds the first unrecognised value, if any.
func extractStatus(lines []string) (status entity.ReimbursementStatus, issue ParseIssue, seen string) {
	_, values := labelValues(lines, labelStatus)
	for _, v := range values {
		m := statusValuePattern.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		switch strings.ToLower(m[1]) {
		case "fully":
			return entity.StatusFullyReimbursed, "", ""
		case "partially":
			return entity.StatusPartiallyReimbursed, "", ""
		default:
			return entity.StatusDeclined, "", ""
		}
	}

	if len(values) == 0 {
		return entity.StatusDeclined, IssueMissingStatus, ""
	}
	return entity.StatusDeclined, IssueUnrecognizedStatus, values[0]
}

func extractAmount(lines []string, label string) (float64, bool) {
	_, values := labelValues(lines, label)
	for _, v := range values {
		m := currencyValuePattern.FindStringSubmatch(v)
		if m == nil {
			continue
		}
		amount, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil || amount < 0 {
			continue
		}
		return amount, true
	}
	return 0.0, false
}

func extractReason(lines []string) (string, bool) {
	idx, values := labelValues(lines, labelReason)
	if len(idx) == 0 {
		return entity.DefaultReason, false
	}

	refsPattern := labelPatterns[labelPolicyReferences]
	parts := []string{values[0]}
	for _, line := range lines[idx[0]+1:] {
		if refsPattern.MatchString(line) {
			break
		}
		parts = append(parts, line)
	}

	reason := strings.TrimSpace(strings.Join(parts, "\n"))
	if reason == "" {
		return entity.DefaultReason, false
	}
	return reason, true
}

func extractPolicyReferences(lines []string) []string {
	refs := []string{}
	idx, values := labelValues(lines, labelPolicyReferences)
	if len(idx) == 0 {
		return refs
	}

	// the first bullet may share the label line
	candidates := append([]string{values[0]}, lines[idx[0]+1:]...)
	for _, line := range candidates {
		m := bulletPattern.FindStringSubmatch(line)
		if m == nil || strings.Trim(m[1], "-*• ") == "" {
			continue
		}
		refs = append(refs, m[1])
	}
	return refs
}
