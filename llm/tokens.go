package llm

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/teilomillet/personatune/utils"
)

// fallbackEncoding is used for models tiktoken does not know, which covers
// every local Ollama model.
const fallbackEncoding = "cl100k_base"

// loadEncoding is swapped out in tests to keep them offline.
var loadEncoding = func(model string) (*tiktoken.Tiktoken, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err == nil {
		return enc, nil
	}
	return tiktoken.GetEncoding(fallbackEncoding)
}

// TokenCounter estimates token counts for backends that do not report usage.
// The encoding is loaded lazily; when it cannot be loaded the counter falls
// back to a words-based estimate.
type TokenCounter struct {
	model  string
	logger utils.Logger
	once   sync.Once
	enc    *tiktoken.Tiktoken
}

func NewTokenCounter(model string, logger utils.Logger) *TokenCounter {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &TokenCounter{model: model, logger: logger}
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	c.once.Do(func() {
		enc, err := loadEncoding(c.model)
		if err != nil {
			c.logger.Warn("Token encoding unavailable, estimating from word count", "model", c.model, "error", err)
			return
		}
		c.enc = enc
	})
	if c.enc == nil {
		return estimateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// estimateTokens assumes roughly four tokens per three words.
func estimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return (words*4 + 2) / 3
}
