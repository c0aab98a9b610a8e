package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teilomillet/personatune/utils"
)

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, estimateTokens(""))
	assert.Equal(t, 0, estimateTokens("   "))
	assert.Equal(t, 2, estimateTokens("one"))
	assert.Equal(t, 4, estimateTokens("one two three"))
	assert.Equal(t, 8, estimateTokens("a b c d e f"))
}

func TestTokenCounterFallsBackOffline(t *testing.T) {
	logger := utils.NewMockLogger()
	counter := NewTokenCounter("smollm2:latest", logger)

	assert.Equal(t, 0, counter.Count(""))
	assert.Equal(t, 4, counter.Count("one two three"))
	assert.Equal(t, 4, counter.Count("one two three"))
	assert.True(t, logger.HasMessage("WARN", "Token encoding unavailable, estimating from word count"))
	assert.Len(t, logger.GetMessages(), 1)
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{`Sure! {"a":1} hope that helps`, `{"a":1}`},
		{"no json here", "no json here"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CleanJSONResponse(tt.in))
	}
}
