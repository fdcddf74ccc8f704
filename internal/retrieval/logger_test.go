package retrieval

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryLogger_WritesJSONLine(t *testing.T) {
	var buf bytes.Buffer
	l := NewQueryLogger(&buf)

	l.Log(QueryLogEntry{Query: "deadline for acme oa", NumResults: 3, Duration: 42 * time.Millisecond})

	var entry QueryLogEntry
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "deadline for acme oa", entry.Query)
	assert.Equal(t, 3, entry.NumResults)
	assert.Equal(t, int64(42), entry.LatencyMs)
	assert.False(t, entry.Timestamp.IsZero())
}
