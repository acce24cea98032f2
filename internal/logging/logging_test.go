package logging

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitize_RedactsSensitiveKeys(t *testing.T) {
	in := map[string]interface{}{
		"access_token": "abc123",
		"Authorization": "Bearer xyz",
		"ticker":       "SBER",
	}
	out, ok := Sanitize(in).(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, "***", out["access_token"])
	assert.Equal(t, "***", out["Authorization"])
	assert.Equal(t, "SBER", out["ticker"])
}

func TestSanitize_TruncatesLongString(t *testing.T) {
	long := strings.Repeat("a", maxStringLen+50)
	out, ok := Sanitize(long).(string)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(out, "...[truncated]"))
	assert.Less(t, len(out), len(long))
}

func TestSanitize_TruncatesList(t *testing.T) {
	list := make([]interface{}, maxListEntries+5)
	for i := range list {
		list[i] = i
	}
	out, ok := Sanitize(list).([]interface{})
	require.True(t, ok)
	assert.Len(t, out, maxListEntries+1)
	assert.Equal(t, "[+5 more]", out[maxListEntries])
}

func TestSanitize_CapsDepth(t *testing.T) {
	var nested interface{} = "leaf"
	for i := 0; i < maxDepth+3; i++ {
		nested = map[string]interface{}{"child": nested}
	}
	out := Sanitize(nested)
	// Walk down until we hit the depth cap marker.
	cur := out
	for i := 0; i < maxDepth+3; i++ {
		m, ok := cur.(map[string]interface{})
		if !ok {
			break
		}
		cur = m["child"]
	}
	assert.Equal(t, "[max-depth]", cur)
}

func TestSetup_FallsBackToInfoOnBadLevel(t *testing.T) {
	logger := Setup("not-a-level")
	assert.NotNil(t, logger)
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
