package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/providers"
	"github.com/teilomillet/personatune/utils"
)

func init() {
	// Keep tests offline: tiktoken would otherwise download its BPE files.
	loadEncoding = func(string) (*tiktoken.Tiktoken, error) {
		return nil, errors.New("offline")
	}
}

const chatReply = `{"choices":[{"message":{"content":"Arr, the capital be Paris!"},"finish_reason":"stop"}],"usage":{"prompt_tokens":12,"completion_tokens":7,"total_tokens":19}}`

func testModelConfig(baseURL string) *config.ModelConfig {
	cfg := config.NewConfig()
	cfg.BaseURL = baseURL
	mc, _ := cfg.ForRole(config.RoleStudent)
	mc.Timeout = 5 * time.Second
	mc.RetryDelay = time.Millisecond
	return mc
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer ollama", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, chatReply)
	})

	client, err := NewLLM(testModelConfig(srv.URL+"/v1"), utils.NewNopLogger(), providers.NewProviderRegistry())
	require.NoError(t, err)

	prompt := NewPrompt("Query: What is the capital of France?", WithSystemPrompt("Be a pirate."))
	got, err := client.Generate(context.Background(), prompt)
	require.NoError(t, err)
	assert.Equal(t, "Arr, the capital be Paris!", got)

	assert.Equal(t, "smollm2:latest", body["model"])
	assert.EqualValues(t, 0, body["temperature"])
	assert.EqualValues(t, 300, body["max_tokens"])
	messages := body["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])

	usage := client.Usage()
	assert.EqualValues(t, 12, usage.InputTokens)
	assert.EqualValues(t, 7, usage.OutputTokens)
	assert.False(t, usage.Estimated)
	assert.Equal(t, 1, client.Calls())
}

func TestGenerateDeterministicBody(t *testing.T) {
	var bodies []string
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(raw))
		_, _ = io.WriteString(w, chatReply)
	})

	client, err := NewLLM(testModelConfig(srv.URL+"/v1"), nil, nil)
	require.NoError(t, err)

	prompt := NewPrompt("Persona: pirate", WithSystemPrompt("Answer in character."))
	first, err := client.Generate(context.Background(), prompt)
	require.NoError(t, err)
	second, err := client.Generate(context.Background(), prompt)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, bodies, 2)
	assert.Equal(t, bodies[0], bodies[1])
}

func TestGenerateEstimatesMissingUsage(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"one two three"}}]}`)
	})

	client, err := NewLLM(testModelConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), NewPrompt("a b c d e f"))
	require.NoError(t, err)

	usage := client.Usage()
	assert.True(t, usage.Estimated)
	assert.EqualValues(t, 8, usage.InputTokens)
	assert.EqualValues(t, 4, usage.OutputTokens)
}

func TestGenerateAPIErrorNoRetry(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
	})

	client, err := NewLLM(testModelConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), NewPrompt("hi"))
	require.Error(t, err)

	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrorTypeAPI, llmErr.Type)
	assert.Equal(t, http.StatusNotFound, llmErr.StatusCode)
	assert.EqualValues(t, 1, hits.Load())
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, chatReply)
	})

	mc := testModelConfig(srv.URL)
	mc.MaxRetries = 2
	client, err := NewLLM(mc, nil, nil)
	require.NoError(t, err)

	got, err := client.Generate(context.Background(), NewPrompt("hi"))
	require.NoError(t, err)
	assert.Equal(t, "Arr, the capital be Paris!", got)
	assert.EqualValues(t, 3, hits.Load())
}

func TestGenerateRetriesExhausted(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	mc := testModelConfig(srv.URL)
	mc.MaxRetries = 1
	client, err := NewLLM(mc, nil, nil)
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), NewPrompt("hi"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
	assert.True(t, IsRetryable(err))
}

func TestGenerateCircuitOpens(t *testing.T) {
	var hits atomic.Int32
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	mc := testModelConfig(srv.URL)
	mc.BreakerFailures = 2
	mc.BreakerTimeout = time.Minute
	client, err := NewLLM(mc, nil, nil)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = client.Generate(context.Background(), NewPrompt("hi"))
		require.Error(t, err)
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err = client.Generate(context.Background(), NewPrompt("hi"))
	require.ErrorIs(t, err, ErrCircuitOpen)
	assert.EqualValues(t, 2, hits.Load())
}

func TestGenerateWithSchemaStructured(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"value\":\"x\"}"}}]}`)
	})

	client, err := NewLLM(testModelConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	type reply struct {
		Value string `json:"value"`
	}
	got, err := client.GenerateWithSchema(context.Background(), NewPrompt("give x"), "reply", SchemaFor(&reply{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"value":"x"}`, got)

	format := body["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	assert.Equal(t, "reply", format["json_schema"].(map[string]any)["name"])
}

func TestGenerateWithSchemaFallsBackToPrompt(t *testing.T) {
	var body map[string]any
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		_, _ = io.WriteString(w, chatReply)
	})

	cfg := config.NewConfig()
	cfg.Provider = "deepseek"
	cfg.BaseURL = srv.URL
	mc, err := cfg.ForRole(config.RoleProposer)
	require.NoError(t, err)

	client, err := NewLLM(mc, nil, nil)
	require.NoError(t, err)

	type reply struct {
		Value string `json:"value"`
	}
	_, err = client.GenerateWithSchema(context.Background(), NewPrompt("give x"), "reply", SchemaFor(&reply{}))
	require.NoError(t, err)

	assert.NotContains(t, body, "response_format")
	messages := body["messages"].([]any)
	last := messages[len(messages)-1].(map[string]any)["content"].(string)
	assert.Contains(t, last, "Respond only with a JSON object matching this schema")
	assert.Contains(t, last, `"value"`)
}

func TestGenerateCanceledContext(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, chatReply)
	})
	client, err := NewLLM(testModelConfig(srv.URL), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = client.Generate(ctx, NewPrompt("hi"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "closed", client.BreakerState())
}

func TestNewLLMUnknownProvider(t *testing.T) {
	mc := testModelConfig("")
	mc.Provider = "nope"
	_, err := NewLLM(mc, nil, nil)
	var llmErr *LLMError
	require.ErrorAs(t, err, &llmErr)
	assert.Equal(t, ErrorTypeProvider, llmErr.Type)
}

func TestNewLLMWithMockProvider(t *testing.T) {
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})

	mock := providers.NewMockProvider(srv.URL, "mock-model", nil)
	mock.SetResponses([]string{"first", "second"}, false)
	mock.SetMockUsage(providers.NewUsage(3, 0, 1))

	registry := providers.NewProviderRegistry()
	registry.Register("mock", func(apiKey, model string, extraHeaders map[string]string) providers.Provider {
		return mock
	})

	mc := testModelConfig("")
	mc.Provider = "mock"
	client, err := NewLLM(mc, utils.NewMockLogger(), registry)
	require.NoError(t, err)

	for _, want := range []string{"first", "second"} {
		got, err := client.Generate(context.Background(), NewPrompt("hi"))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err = client.Generate(context.Background(), NewPrompt("hi"))
	assert.Error(t, err)
	assert.EqualValues(t, 8, client.Usage().TotalTokens)
}
