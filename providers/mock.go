package providers

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/utils"
)

// MockProvider implements the Provider interface for testing purposes. It
// still produces a request body, so it can sit behind a real HTTP server,
// but ignores the reply body and hands back queued responses instead.
type MockProvider struct {
	mu           sync.Mutex
	endpoint     string
	model        string
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger

	responseText  string
	usage         *Usage
	shouldError   bool
	errorMsg      string
	responses     []string
	currentIndex  int
	loopResponses bool
	structured    bool
}

// NewMockProvider creates a new mock provider instance for testing.
func NewMockProvider(endpoint, model string, extraHeaders map[string]string) *MockProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &MockProvider{
		endpoint:     endpoint,
		model:        model,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
		responseText: "This is a mock response",
		structured:   true,
	}
}

// SetMockResponse configures the fallback response text.
func (p *MockProvider) SetMockResponse(response string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responseText = response
}

// SetMockUsage configures the usage attached to every response; nil means
// the backend reports none.
func (p *MockProvider) SetMockUsage(usage *Usage) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.usage = usage
}

// SetMockError configures the mock to fail every parse.
func (p *MockProvider) SetMockError(shouldError bool, errorMsg string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shouldError = shouldError
	p.errorMsg = errorMsg
}

// SetStructuredResponse toggles response_format support.
func (p *MockProvider) SetStructuredResponse(supported bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.structured = supported
}

// SetResponses configures a list of responses to be returned in sequence.
func (p *MockProvider) SetResponses(responses []string, loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.responses = responses
	p.currentIndex = 0
	p.loopResponses = loop
}

func (p *MockProvider) SetLogger(logger utils.Logger) { p.logger = logger }
func (p *MockProvider) Name() string                  { return "mock" }
func (p *MockProvider) Endpoint() string              { return p.endpoint }

func (p *MockProvider) SetOption(key string, value any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.options[key] = value
}

func (p *MockProvider) SetExtraHeaders(headers map[string]string) { p.extraHeaders = headers }

func (p *MockProvider) SupportsStructuredResponse() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.structured
}

func (p *MockProvider) Headers() map[string]string {
	headers := map[string]string{"Content-Type": "application/json"}
	for k, v := range p.extraHeaders {
		headers[k] = v
	}
	return headers
}

func (p *MockProvider) SetDefaultOptions(cfg *config.ModelConfig) {
	if cfg.Temperature != nil {
		p.SetOption(KeyTemperature, *cfg.Temperature)
	}
	p.SetOption(KeyMaxTokens, cfg.MaxTokens)
	if cfg.Seed != nil {
		p.SetOption(KeySeed, *cfg.Seed)
	}
}

func (p *MockProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if req == nil || len(req.Messages) == 0 {
		return nil, errors.New("request has no messages")
	}
	body := map[string]any{
		KeyModel:    p.model,
		KeyMessages: req.Messages,
	}
	if req.SystemPrompt != "" {
		body["system"] = req.SystemPrompt
	}
	if req.ResponseSchema != nil {
		body[KeyResponseFormat] = req.SchemaName
	}
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range options {
		body[k] = v
	}
	return json.Marshal(body)
}

func (p *MockProvider) ParseResponse(body []byte) (*Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shouldError {
		return nil, errors.New(p.errorMsg)
	}
	text, err := p.nextResponse()
	if err != nil {
		return nil, err
	}
	resp := &Response{Content: Text{Value: text}}
	if p.usage != nil {
		u := *p.usage
		resp.Usage = &u
	}
	return resp, nil
}

// nextResponse returns the next response from the queue.
func (p *MockProvider) nextResponse() (string, error) {
	if len(p.responses) == 0 {
		return p.responseText, nil
	}
	if p.currentIndex >= len(p.responses) {
		if !p.loopResponses {
			return "", errors.New("mock responses exhausted")
		}
		p.currentIndex = 0
	}
	response := p.responses[p.currentIndex]
	p.currentIndex++
	return response, nil
}

var _ Provider = (*MockProvider)(nil)
