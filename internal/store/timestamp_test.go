package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp_ConvertsTrailingZ(t *testing.T) {
	ts := parseTimestamp("2026-01-01T10:30:00Z")
	assert.Equal(t, 2026, ts.Year())
	assert.Equal(t, time.January, ts.Month())
	assert.Equal(t, 10, ts.Hour())
}

func TestParseTimestamp_EmptyFallsBackToNow(t *testing.T) {
	before := time.Now().UTC()
	ts := parseTimestamp("")
	after := time.Now().UTC()
	assert.True(t, !ts.Before(before) && !ts.After(after.Add(time.Second)))
}

func TestFirstNonEmpty_PicksFirstSet(t *testing.T) {
	assert.Equal(t, "b", firstNonEmpty("", "b", "c"))
	assert.Equal(t, "", firstNonEmpty("", "", ""))
}
