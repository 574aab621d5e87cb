package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "hello world", limit: 0, expect: ""},
		{name: "shorter than limit", input: "hello", limit: 10, expect: "hello"},
		{name: "truncates", input: "hello world", limit: 5, expect: "hello..."},
		{name: "trims whitespace", input: "  spaced  ", limit: 5, expect: "space..."},
		{name: "counts runes", input: "héllo wörld", limit: 4, expect: "héll..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expect, TruncateForLog(tt.input, tt.limit))
		})
	}
}

func TestNew(t *testing.T) {
	log, err := New(true, true)
	require.NoError(t, err)
	assert.True(t, log.Core().Enabled(-1))
}
