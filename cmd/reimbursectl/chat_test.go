package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilters(t *testing.T) {
	filters, err := parseFilters([]string{"employee=John_Doe", " reimbursed_amount = 1000 "})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"employee":          "John_Doe",
		"reimbursed_amount": "1000",
	}, filters)

	filters, err = parseFilters(nil)
	require.NoError(t, err)
	assert.Nil(t, filters)

	_, err = parseFilters([]string{"employee"})
	assert.Error(t, err)

	_, err = parseFilters([]string{"=x"})
	assert.Error(t, err)
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "bad pdf", errorMessage([]byte(`{"detail":"bad pdf"}`)))
	assert.Equal(t, "decision not found", errorMessage([]byte(`{"success":false,"error":"decision not found"}`)))
	assert.Equal(t, "plain text", errorMessage([]byte("plain text")))
}
