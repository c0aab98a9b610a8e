// Package providers implements the wire side of the language-model backends.
// Every supported backend speaks the OpenAI-compatible chat completions API;
// the registry maps a provider name (ollama, vllm, openai, ...) to the
// endpoint, authentication and capability settings of that backend.
package providers

import (
	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/utils"
)

// Provider defines the interface that a chat-completions backend implements.
type Provider interface {
	Name() string
	Endpoint() string
	Headers() map[string]string
	SetExtraHeaders(extraHeaders map[string]string)
	SetDefaultOptions(cfg *config.ModelConfig)
	SetOption(key string, value any)
	SetLogger(logger utils.Logger)

	PrepareRequest(req *Request, options map[string]any) ([]byte, error)
	ParseResponse(body []byte) (*Response, error)

	SupportsStructuredResponse() bool
}

// ProviderConfig holds the configuration for a provider
type ProviderConfig struct {
	// Name is the provider identifier
	Name string

	// Endpoint is the default chat completions URL, used when no base URL is configured
	Endpoint string

	// AuthHeader is the header key used for authentication; empty disables auth
	AuthHeader string

	// AuthPrefix is the prefix to use before the API key (e.g., "Bearer ")
	AuthPrefix string

	// RequiredHeaders are additional headers always needed
	RequiredHeaders map[string]string

	// SupportsStructuredResponse indicates if response_format json_schema is accepted
	SupportsStructuredResponse bool
}

// ProviderConstructor creates a provider instance for one model.
type ProviderConstructor func(apiKey, model string, extraHeaders map[string]string) Provider
