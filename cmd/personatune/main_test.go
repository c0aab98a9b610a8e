package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/history"
	"github.com/teilomillet/personatune/optimizer"
	"github.com/teilomillet/personatune/program"
	"github.com/teilomillet/personatune/utils"
)

func chatReply(content string) string {
	raw, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{
			"message":       map[string]any{"content": content},
			"finish_reason": "stop",
		}},
		"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(raw)
}

// fakeBackend answers by model name: the student rephrases, the proposer
// drafts numbered instructions and the judge always rates 8.
func fakeBackend(t *testing.T) *httptest.Server {
	t.Helper()
	var proposals atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Model string `json:"model"`
		}
		raw, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(raw, &body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		switch body.Model {
		case "student-model":
			_, _ = io.WriteString(w, chatReply("Response: Arr, the capital be Paris!"))
		case "proposer-model":
			n := proposals.Add(1)
			instruction := fmt.Sprintf("Stay fully in character as the persona and use only the facts given. Variant %d.", n)
			reply, _ := json.Marshal(map[string]string{"proposed_instruction": instruction})
			_, _ = io.WriteString(w, chatReply(string(reply)))
		case "judge-model":
			_, _ = io.WriteString(w, chatReply("8"))
		default:
			http.Error(w, "unknown model "+body.Model, http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func setTestEnv(t *testing.T, baseURL string) {
	t.Helper()
	t.Setenv("PERSONA_API_BASE", baseURL)
	t.Setenv("PERSONA_STUDENT_MODEL", "student-model")
	t.Setenv("PERSONA_PROPOSER_MODEL", "proposer-model")
	t.Setenv("PERSONA_JUDGE_MODEL", "judge-model")
	t.Setenv("PERSONA_LOG_LEVEL", "off")
}

func TestParseFlagsOnlyAppliesSetFlags(t *testing.T) {
	_, opts, err := parseFlags([]string{"-trials", "4", "-out", "tuned.json", "-log-level", "debug"}, io.Discard)
	require.NoError(t, err)

	cfg := config.NewConfig()
	config.ApplyOptions(cfg, opts...)
	assert.Equal(t, 4, cfg.Optimizer.NumTrials)
	assert.Equal(t, "tuned.json", cfg.OutputPath)
	assert.Equal(t, utils.LogLevelDebug, cfg.LogLevel)
	assert.Equal(t, 10, cfg.Optimizer.NumCandidates)
	assert.Equal(t, int64(9), cfg.Optimizer.Seed)
}

func TestParseFlagsErrors(t *testing.T) {
	_, _, err := parseFlags([]string{"-log-level", "loud"}, io.Discard)
	assert.Error(t, err)

	_, _, err = parseFlags([]string{"extra"}, io.Discard)
	assert.ErrorContains(t, err, "unexpected arguments")
}

func TestRunEndToEnd(t *testing.T) {
	srv := fakeBackend(t)
	setTestEnv(t, srv.URL+"/v1")
	dir := t.TempDir()
	out := filepath.Join(dir, "optimized_program.json")
	dbPath := filepath.Join(dir, "history.db")

	var stdout, stderr bytes.Buffer
	args := []string{"-trials", "3", "-candidates", "3", "-out", out, "-history", dbPath}
	require.NoError(t, run(context.Background(), args, strings.NewReader(""), &stdout, &stderr))

	got := stdout.String()
	assert.Contains(t, got, "=== Baseline sample ===")
	assert.Contains(t, got, "Response: Arr, the capital be Paris!")
	assert.Contains(t, got, "Judge score: 0.8")
	assert.Contains(t, got, "=== Running instruction search (instruction-only, 3 trials) ===")
	assert.Contains(t, got, "OPTIMIZED INSTRUCTION:")
	assert.Contains(t, got, "=== Optimized sample (same input) ===")
	assert.Contains(t, got, "Saved to "+out)
	assert.Contains(t, got, "Token usage:")
	assert.Less(t, strings.Index(got, "Baseline"), strings.Index(got, "OPTIMIZED INSTRUCTION:"))

	tuned, meta, err := program.Load(out)
	require.NoError(t, err)
	assert.NotEmpty(t, tuned.Instructions())
	assert.Equal(t, "student-model", meta.StudentModel)
	assert.Equal(t, "judge-model", meta.JudgeModel)
	assert.InDelta(t, 0.8, meta.BestScore, 1e-9)
	assert.NotEmpty(t, meta.RunID)

	store, err := history.Open(dbPath)
	require.NoError(t, err)
	defer store.Close()
	rec, err := store.GetRun(context.Background(), meta.RunID)
	require.NoError(t, err)
	require.NotNil(t, rec.BestScore)
	assert.InDelta(t, 0.8, *rec.BestScore, 1e-9)
}

func TestRunDeclinedByConfirm(t *testing.T) {
	srv := fakeBackend(t)
	setTestEnv(t, srv.URL+"/v1")
	out := filepath.Join(t.TempDir(), "optimized_program.json")

	var stdout bytes.Buffer
	args := []string{"-trials", "2", "-candidates", "2", "-out", out, "-confirm"}
	err := run(context.Background(), args, strings.NewReader("n\n"), &stdout, io.Discard)
	require.ErrorIs(t, err, optimizer.ErrNotConfirmed)
	assert.Contains(t, stdout.String(), "Continue? [y/N]")
	assert.NoFileExists(t, out)
}

func TestRunRejectsBadExamplesFile(t *testing.T) {
	srv := fakeBackend(t)
	setTestEnv(t, srv.URL+"/v1")

	err := run(context.Background(), []string{"-examples", filepath.Join(t.TempDir(), "missing.yaml")},
		strings.NewReader(""), io.Discard, io.Discard)
	assert.Error(t, err)
}
