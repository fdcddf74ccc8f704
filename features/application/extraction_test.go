package application

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExtraction_ValidPayload(t *testing.T) {
	raw := `{"title": "Acme", "position": "Backend Engineer", "status": "Interview",
		"deadline": "2026-09-15", "date_of_application": "2026-08-01", "notes": "onsite round 2"}`

	ext, err := ParseExtraction(raw)
	require.NoError(t, err)
	assert.True(t, ext.Relevant)
	assert.Equal(t, "Acme", ext.Company)
	assert.Equal(t, "Backend Engineer", ext.Position)
	assert.Equal(t, StatusInterview, ext.Status)
	assert.Equal(t, "2026-09-15", ext.Deadline)
	assert.Equal(t, "2026-08-01", ext.AppliedDate)
	assert.Equal(t, "onsite round 2", ext.Notes)
}

func TestParseExtraction_StripsCodeFence(t *testing.T) {
	raw := "```json\n{\"title\": \"Acme\", \"position\": \"SRE\", \"status\": \"Applied\", \"notes\": \"\"}\n```"

	ext, err := ParseExtraction(raw)
	require.NoError(t, err)
	assert.Equal(t, "Acme", ext.Company)
	assert.Equal(t, StatusApplied, ext.Status)
}

func TestParseExtraction_IrrelevantEmail(t *testing.T) {
	ext, err := ParseExtraction(`{"relevant": false}`)
	require.NoError(t, err)
	assert.False(t, ext.Relevant)
}

func TestParseExtraction_MalformedJSON(t *testing.T) {
	_, err := ParseExtraction("I could not find a job application in this email.")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestParseExtraction_MissingFields(t *testing.T) {
	for name, raw := range map[string]string{
		"no company":  `{"position": "SWE", "status": "Applied"}`,
		"no position": `{"title": "Acme", "status": "Applied"}`,
		"bad status":  `{"title": "Acme", "position": "SWE", "status": "Maybe"}`,
	} {
		_, err := ParseExtraction(raw)
		assert.ErrorIs(t, err, ErrExtraction, name)
	}
}
