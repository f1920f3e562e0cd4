package ai

import (
	"testing"

	"github.com/garyjia/invoice-reimbursement/internal/domain/entity"
	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected string
	}{
		{name: "meal", text: "Meal cost within limit", expected: entity.CategoryFood},
		{name: "food upper case", text: "FOOD allowance applied", expected: entity.CategoryFood},
		{name: "flight", text: "Flight exceeds cap", expected: entity.CategoryTravel},
		{name: "travel", text: "Business travel by bus", expected: entity.CategoryTravel},
		{name: "taxi", text: "Taxi to the office", expected: entity.CategoryCab},
		{name: "cab", text: "cab fare for commute", expected: entity.CategoryCab},
		{name: "food wins over flight", text: "In-flight meal", expected: entity.CategoryFood},
		{name: "travel wins over cab", text: "Travel by cab", expected: entity.CategoryTravel},
		{name: "nothing recognised", text: "Hotel stay for two nights", expected: entity.CategoryOther},
		{name: "empty", text: "", expected: entity.CategoryOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.text))
			// repeated calls agree
			assert.Equal(t, Classify(tt.text), Classify(tt.text))
		})
	}
}

func TestMetadataCategory(t *testing.T) {
	tests := []struct {
		name     string
		record   entity.DecisionRecord
		expected string
	}{
		{
			name:     "reason decides",
			record:   entity.DecisionRecord{Category: "Accommodation", Reason: "Flight over the cap"},
			expected: entity.CategoryTravel,
		},
		{
			name:     "model category used when reason is silent",
			record:   entity.DecisionRecord{Category: "Cab", Reason: "Within the daily limit"},
			expected: entity.CategoryCab,
		},
		{
			name:     "unknown model category stays other",
			record:   entity.DecisionRecord{Category: entity.CategoryUnknown, Reason: "Within the daily limit"},
			expected: entity.CategoryOther,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MetadataCategory(tt.record))
		})
	}
}
