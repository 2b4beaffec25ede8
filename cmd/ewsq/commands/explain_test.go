package commands

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseScalar(t *testing.T) {
	assert.Equal(t, true, parseScalar("true"))
	assert.Equal(t, false, parseScalar("false"))
	assert.Equal(t, 42, parseScalar("42"))
	assert.Equal(t, "RE:", parseScalar("RE:"))

	ts, ok := parseScalar("2024-06-03T09:00:00Z").(time.Time)
	assert.True(t, ok)
	assert.Equal(t, time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC), ts)
}

func TestParseValueSets(t *testing.T) {
	assert.Equal(t, []any{1, 2, 3}, parseValue("1,2,3"))
	assert.Equal(t, []any{"a", "b"}, parseValue("a, b"))
	assert.Equal(t, "single", parseValue("single"))
}
