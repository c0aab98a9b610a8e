package persona

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/program"
	"github.com/teilomillet/personatune/utils"
)

// TestLivePirate needs a running backend, e.g. Ollama with smollm2 and
// gemma3:12b pulled. Enable with PERSONA_LIVE_TEST=1.
func TestLivePirate(t *testing.T) {
	if os.Getenv("PERSONA_LIVE_TEST") != "1" {
		t.Skip("set PERSONA_LIVE_TEST=1 to run against a live backend")
	}

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	logger := utils.NewLogger(cfg.LogLevel)

	newLLM := func(role config.Role) llm.LLM {
		mc, err := cfg.ForRole(role)
		require.NoError(t, err)
		lm, err := llm.NewLLM(mc, logger, nil)
		require.NoError(t, err)
		return lm
	}
	student, judge := newLLM(config.RoleStudent), newLLM(config.RoleJudge)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	ex := dataset.Example{
		Persona:   "pirate",
		Query:     "What programming languages does Matthew know?",
		RawAnswer: "Matthew's primary languages are Python, C++, and Rust.",
	}
	response, err := Rephrase(ctx, NewRephrase(), student, ex)
	require.NoError(t, err)
	t.Logf("response: %s", response)

	for _, lang := range []string{"Python", "C++", "Rust"} {
		assert.True(t, strings.Contains(response, lang), "response should mention %s", lang)
	}

	score, err := NewJudge(judge).Score(ctx, ex, program.Prediction{dataset.FieldResponse: response})
	require.NoError(t, err)
	assert.Greater(t, score, 0.5)
}
