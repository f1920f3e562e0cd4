package extraction

import (
	"regexp"
	"strconv"
)

var currencyAmountPattern = regexp.MustCompile(`[₹¥]\s*(\d+\.?\d*)`)

// ExtractAmounts finds currency amounts in invoice text. The last amount is
// taken as the invoice total and reported under "INR".
func ExtractAmounts(text string) map[string]float64 {
	amounts := make(map[string]float64)
	matches := currencyAmountPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return amounts
	}
	if v, err := strconv.ParseFloat(matches[len(matches)-1][1], 64); err == nil {
		amounts["INR"] = v
	}
	return amounts
}

// InvoiceTotal returns the detected invoice total, or 0 when none is found
func InvoiceTotal(text string) float64 {
	return ExtractAmounts(text)["INR"]
}
