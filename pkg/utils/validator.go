package utils

import (
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	MinEmployeeNameLength = 2
	MaxEmployeeNameLength = 100
	MinQueryLength        = 3
)

var controlChars = regexp.MustCompile(`[\x00-\x1f\x7f]`)

// ValidateEmployeeName trims name and checks its length in characters
func ValidateEmployeeName(name string) (string, error) {
	trimmed := strings.TrimSpace(SanitizeString(name))
	n := utf8.RuneCountInString(trimmed)
	if n < MinEmployeeNameLength || n > MaxEmployeeNameLength {
		return "", fmt.Errorf("employee name must be %d-%d characters, got %d",
			MinEmployeeNameLength, MaxEmployeeNameLength, n)
	}
	return trimmed, nil
}

// ValidateQuery checks a free-text search query
func ValidateQuery(query string) (string, error) {
	trimmed := strings.TrimSpace(query)
	if utf8.RuneCountInString(trimmed) < MinQueryLength {
		return "", fmt.Errorf("query must be at least %d characters", MinQueryLength)
	}
	return trimmed, nil
}

// ValidateFileExtension checks that filename ends in ext, ignoring case.
// An empty filename is accepted; callers that require one check separately.
func ValidateFileExtension(filename, ext string) error {
	if filename == "" {
		return nil
	}
	if !strings.EqualFold(filepath.Ext(filename), ext) {
		return fmt.Errorf("%s must be a %s file", filename, ext)
	}
	return nil
}

// ValidateAmount validates a non-negative amount threshold
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || amount < 0 {
		return fmt.Errorf("amount must be a non-negative number: %.2f", amount)
	}
	return nil
}

// SanitizeString removes control characters
func SanitizeString(s string) string {
	return controlChars.ReplaceAllString(s, "")
}
