// Package llm is the client side of a language-model backend: it turns a
// Prompt into a chat completions call through a Provider and owns the HTTP
// client, rate limiting, circuit breaking, retries and token accounting.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"golang.org/x/time/rate"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/providers"
	"github.com/teilomillet/personatune/utils"
)

// LLM is the handle the rest of the program uses to talk to one backend.
type LLM interface {
	Generate(ctx context.Context, prompt *Prompt) (string, error)
	GenerateWithSchema(ctx context.Context, prompt *Prompt, name string, schema *jsonschema.Schema) (string, error)
	Model() string
	Usage() providers.Usage
	GetLogger() utils.Logger
}

// LLMImpl is the HTTP implementation of LLM.
type LLMImpl struct {
	Provider   providers.Provider
	MaxRetries int
	RetryDelay time.Duration

	client  *http.Client
	logger  utils.Logger
	model   string
	role    config.Role
	limiter *rate.Limiter
	breaker *CircuitBreaker
	counter *TokenCounter

	usageMu sync.Mutex
	usage   providers.Usage
	calls   int
}

// NewLLM builds a backend client for one role.
func NewLLM(cfg *config.ModelConfig, logger utils.Logger, registry *providers.ProviderRegistry) (*LLMImpl, error) {
	if cfg == nil {
		return nil, NewLLMError(ErrorTypeInvalidInput, "model config is required", nil)
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if registry == nil {
		registry = providers.GetDefaultRegistry()
	}

	provider, err := registry.Get(cfg.Provider, cfg.APIKey, cfg.Model, cfg.ExtraHeaders)
	if err != nil {
		return nil, NewLLMError(ErrorTypeProvider, "failed to create provider", err)
	}
	provider.SetLogger(logger)
	provider.SetDefaultOptions(cfg)

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	name := fmt.Sprintf("%s/%s", cfg.Role, cfg.Model)
	return &LLMImpl{
		Provider:   provider,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		client:     &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
		model:      cfg.Model,
		role:       cfg.Role,
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    NewCircuitBreaker(name, cfg.BreakerFailures, cfg.BreakerTimeout, logger),
		counter:    NewTokenCounter(cfg.Model, logger),
	}, nil
}

func (l *LLMImpl) Model() string {
	return l.model
}

func (l *LLMImpl) GetLogger() utils.Logger {
	return l.logger
}

// Usage returns the tokens spent by every successful call so far.
func (l *LLMImpl) Usage() providers.Usage {
	l.usageMu.Lock()
	defer l.usageMu.Unlock()
	return l.usage
}

// Calls returns the number of successful calls so far.
func (l *LLMImpl) Calls() int {
	l.usageMu.Lock()
	defer l.usageMu.Unlock()
	return l.calls
}

// BreakerState reports the circuit breaker state of this backend.
func (l *LLMImpl) BreakerState() string {
	return l.breaker.State()
}

// Generate sends prompt and returns the text of the first choice.
func (l *LLMImpl) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	if prompt == nil {
		return "", NewLLMError(ErrorTypeInvalidInput, "prompt is required", nil)
	}
	return l.generate(ctx, prompt.Request())
}

// GenerateWithSchema asks for a reply matching schema. Providers with native
// structured output get it as response_format; for the others the schema is
// spelled out in the prompt.
func (l *LLMImpl) GenerateWithSchema(ctx context.Context, prompt *Prompt, name string, schema *jsonschema.Schema) (string, error) {
	if prompt == nil {
		return "", NewLLMError(ErrorTypeInvalidInput, "prompt is required", nil)
	}
	if schema == nil {
		return l.generate(ctx, prompt.Request())
	}
	if l.Provider.SupportsStructuredResponse() {
		req := prompt.Request()
		req.ResponseSchema = schema
		req.SchemaName = name
		return l.generate(ctx, req)
	}

	l.logger.Debug("Provider lacks structured output, embedding schema in prompt", "provider", l.Provider.Name())
	withSchema, err := promptWithSchema(prompt, schema)
	if err != nil {
		return "", NewLLMError(ErrorTypeInvalidInput, "failed to embed schema", err)
	}
	return l.generate(ctx, withSchema.Request())
}

func (l *LLMImpl) generate(ctx context.Context, req *providers.Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= l.MaxRetries; attempt++ {
		l.logger.Debug("Generating text", "role", l.role, "model", l.model, "attempt", attempt+1)

		result, err := l.breaker.Execute(ctx, func() (string, error) {
			return l.attemptGenerate(ctx, req)
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if !IsRetryable(err) || attempt == l.MaxRetries {
			break
		}

		l.logger.Warn("Generation attempt failed", "role", l.role, "error", err, "attempt", attempt+1)
		if err := l.wait(ctx); err != nil {
			return "", err
		}
	}

	if l.MaxRetries > 0 {
		return "", fmt.Errorf("failed to generate after %d attempts: %w", l.MaxRetries+1, lastErr)
	}
	return "", lastErr
}

func (l *LLMImpl) wait(ctx context.Context) error {
	timer := time.NewTimer(l.RetryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (l *LLMImpl) attemptGenerate(ctx context.Context, req *providers.Request) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}

	reqBody, err := l.Provider.PrepareRequest(req, nil)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to prepare request", err)
	}
	l.logger.Debug("Request body", "provider", l.Provider.Name(), "body", string(reqBody))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.Provider.Endpoint(), bytes.NewReader(reqBody))
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to create request", err)
	}
	for k, v := range l.Provider.Headers() {
		httpReq.Header.Set(k, v)
	}

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return "", NewLLMError(ErrorTypeRequest, "failed to send request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to read response body", err)
	}

	if resp.StatusCode != http.StatusOK {
		llmErr := newStatusError(resp.StatusCode, body)
		l.logger.Error("API error", append(llmErr.LoggableFields(), "provider", l.Provider.Name())...)
		return "", llmErr
	}

	parsed, err := l.Provider.ParseResponse(body)
	if err != nil {
		return "", NewLLMError(ErrorTypeResponse, "failed to parse response", err)
	}

	text := parsed.AsText()
	l.recordUsage(req, text, parsed.Usage)
	l.logger.Debug("Text generated successfully", "role", l.role, "result", text)
	return text, nil
}

// recordUsage adds the reported usage, or a local estimate when the backend
// sent none.
func (l *LLMImpl) recordUsage(req *providers.Request, output string, usage *providers.Usage) {
	if usage == nil {
		input := l.counter.Count(req.SystemPrompt)
		for _, m := range req.Messages {
			input += l.counter.Count(m.Content)
		}
		usage = providers.NewUsage(int64(input), 0, int64(l.counter.Count(output)))
		usage.Estimated = true
	}

	l.usageMu.Lock()
	defer l.usageMu.Unlock()
	l.usage.Add(usage)
	l.calls++
}

var _ LLM = (*LLMImpl)(nil)
