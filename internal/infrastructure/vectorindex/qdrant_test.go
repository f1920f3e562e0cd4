package vectorindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointID_StableAndDistinct(t *testing.T) {
	a := pointID("inv-0011223344556677")
	b := pointID("inv-0011223344556677")
	c := pointID("inv-8899aabbccddeeff")

	assert.Equal(t, a.GetUuid(), b.GetUuid())
	assert.NotEqual(t, a.GetUuid(), c.GetUuid())
	assert.Len(t, a.GetUuid(), 36)
}

func TestPayloadRoundTrip(t *testing.T) {
	payload := buildPayload("inv-1", "Invoice Analysis for Ravi:", map[string]string{
		"employee":          "Ravi",
		"reimbursed_amount": "150.0",
	})

	id, document, metadata := splitPayload(payload)

	assert.Equal(t, "inv-1", id)
	assert.Equal(t, "Invoice Analysis for Ravi:", document)
	assert.Equal(t, map[string]string{"employee": "Ravi", "reimbursed_amount": "150.0"}, metadata)
}

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(nil))

	filter := buildFilter(map[string]string{"employee": "Ravi"})
	require.NotNil(t, filter)
	require.Len(t, filter.Must, 1)

	field := filter.Must[0].GetField()
	require.NotNil(t, field)
	assert.Equal(t, "employee", field.Key)
	assert.Equal(t, "Ravi", field.Match.GetKeyword())
}
