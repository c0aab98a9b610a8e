package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/utils"
)

// GenericProvider speaks the OpenAI-compatible chat completions API. The
// differences between backends (endpoint, auth header, structured output
// support) live in its ProviderConfig.
type GenericProvider struct {
	apiKey       string
	model        string
	config       ProviderConfig
	extraHeaders map[string]string
	options      map[string]any
	logger       utils.Logger
	baseURL      string
}

// NewGenericProvider creates a provider for model using cfg.
func NewGenericProvider(apiKey, model string, cfg ProviderConfig, extraHeaders map[string]string) *GenericProvider {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	return &GenericProvider{
		apiKey:       apiKey,
		model:        model,
		config:       cfg,
		extraHeaders: extraHeaders,
		options:      make(map[string]any),
		logger:       utils.NewNopLogger(),
	}
}

// Name returns the provider's identifier from its configuration.
func (p *GenericProvider) Name() string {
	return p.config.Name
}

// Endpoint returns the chat completions URL. A configured base URL such as
// http://host:11434/v1 takes precedence over the provider default.
func (p *GenericProvider) Endpoint() string {
	if p.baseURL != "" {
		return strings.TrimRight(p.baseURL, "/") + "/chat/completions"
	}
	return p.config.Endpoint
}

// SetBaseURL overrides the API base URL.
func (p *GenericProvider) SetBaseURL(baseURL string) {
	p.baseURL = baseURL
}

// Headers returns the HTTP headers required for API requests.
func (p *GenericProvider) Headers() map[string]string {
	headers := make(map[string]string)

	for k, v := range p.config.RequiredHeaders {
		headers[k] = v
	}

	if p.apiKey != "" && p.config.AuthHeader != "" {
		headers[p.config.AuthHeader] = p.config.AuthPrefix + p.apiKey
	}

	for k, v := range p.extraHeaders {
		headers[k] = v
	}

	return headers
}

// SetExtraHeaders configures additional HTTP headers for API requests.
func (p *GenericProvider) SetExtraHeaders(extraHeaders map[string]string) {
	if extraHeaders == nil {
		extraHeaders = make(map[string]string)
	}
	p.extraHeaders = extraHeaders
}

// SetDefaultOptions applies the sampling settings of one backend role. A
// nil temperature leaves the field out of the request so the server default applies.
func (p *GenericProvider) SetDefaultOptions(cfg *config.ModelConfig) {
	if cfg.Temperature != nil {
		p.SetOption(KeyTemperature, *cfg.Temperature)
	}
	if cfg.MaxTokens > 0 {
		p.SetOption(KeyMaxTokens, cfg.MaxTokens)
	}
	if cfg.Seed != nil {
		p.SetOption(KeySeed, *cfg.Seed)
	}
	if cfg.BaseURL != "" {
		p.baseURL = cfg.BaseURL
	}

	p.logger.Debug("Default options set", "provider", p.Name(), "model", p.model,
		"temperature", cfg.Temperature, "max_tokens", cfg.MaxTokens)
}

// SetOption sets a specific option for the provider.
func (p *GenericProvider) SetOption(key string, value any) {
	p.options[key] = value
}

// SetLogger configures the logger for the provider instance.
func (p *GenericProvider) SetLogger(logger utils.Logger) {
	p.logger = logger
}

// SupportsStructuredResponse reports whether response_format json_schema is accepted.
func (p *GenericProvider) SupportsStructuredResponse() bool {
	return p.config.SupportsStructuredResponse
}

// PrepareRequest builds the chat completions body. Provider defaults are
// applied first, then per-call options; model and messages always win.
func (p *GenericProvider) PrepareRequest(req *Request, options map[string]any) ([]byte, error) {
	if req == nil || (len(req.Messages) == 0 && req.SystemPrompt == "") {
		return nil, errors.New("request has no messages")
	}

	body := make(map[string]any, len(p.options)+len(options)+3)
	for k, v := range p.options {
		body[k] = v
	}
	for k, v := range options {
		body[k] = v
	}

	messages := make([]map[string]string, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		messages = append(messages, map[string]string{"role": "system", "content": req.SystemPrompt})
	}
	for _, m := range req.Messages {
		messages = append(messages, map[string]string{"role": m.Role, "content": m.Content})
	}
	body[KeyModel] = p.model
	body[KeyMessages] = messages

	if req.ResponseSchema != nil {
		if !p.SupportsStructuredResponse() {
			return nil, fmt.Errorf("provider %s does not support structured responses", p.Name())
		}
		name := req.SchemaName
		if name == "" {
			name = DefaultSchemaName
		}
		body[KeyResponseFormat] = map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"schema": req.ResponseSchema,
				"strict": true,
			},
		}
	}

	reqJSON, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return reqJSON, nil
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens        int64 `json:"prompt_tokens"`
		CompletionTokens    int64 `json:"completion_tokens"`
		TotalTokens         int64 `json:"total_tokens"`
		PromptTokensDetails *struct {
			CachedTokens int64 `json:"cached_tokens"`
		} `json:"prompt_tokens_details"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// ParseResponse extracts the first choice and the reported usage.
func (p *GenericProvider) ParseResponse(body []byte) (*Response, error) {
	var resp chatCompletionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("api error (%s): %s", resp.Error.Type, resp.Error.Message)
	}
	if len(resp.Choices) == 0 {
		return nil, errors.New("empty response from API")
	}

	out := &Response{Content: Text{Value: resp.Choices[0].Message.Content}}
	if resp.Usage != nil {
		var cached int64
		if resp.Usage.PromptTokensDetails != nil {
			cached = resp.Usage.PromptTokensDetails.CachedTokens
		}
		out.Usage = NewUsage(resp.Usage.PromptTokens, cached, resp.Usage.CompletionTokens)
		if resp.Usage.TotalTokens > 0 {
			out.Usage.TotalTokens = resp.Usage.TotalTokens
		}
	}
	if resp.Choices[0].FinishReason == "length" {
		p.logger.Debug("Response truncated at max tokens", "provider", p.Name(), "model", p.model)
	}
	return out, nil
}

var _ Provider = (*GenericProvider)(nil)
