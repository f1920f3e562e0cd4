package ai

import (
	"strings"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
)

type categoryRule struct {
	category string
	keywords []string
}

// Rules are evaluated in order and the first match wins, so a reason that
// mentions both a meal and a flight is Food.
var categoryRules = []categoryRule{
	{category: entity.CategoryFood, keywords: []string{"meal", "food"}},
	{category: entity.CategoryTravel, keywords: []string{"travel", "flight"}},
	{category: entity.CategoryCab, keywords: []string{"cab", "taxi"}},
}

// Classify maps free text (usually a decision reason) to an expense category
// by case-insensitive substring match. Unmatched text is Other.
func Classify(text string) string {
	lower := strings.ToLower(text)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}
	return entity.CategoryOther
}

// MetadataCategory is the category indexed for a decision. The reason is
// classified first; the model's own category label is consulted only when
// the reason says nothing recognisable.
func MetadataCategory(record entity.DecisionRecord) string {
	category := Classify(record.Reason)
	if category == entity.CategoryOther && record.Category != "" && record.Category != entity.CategoryUnknown {
		category = Classify(record.Category)
	}
	return category
}
