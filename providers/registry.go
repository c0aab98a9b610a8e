package providers

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderRegistry manages the registration and retrieval of LLM providers.
// It provides thread-safe access to provider constructors and supports
// dynamic provider registration.
type ProviderRegistry struct {
	providers map[string]ProviderConstructor
	configs   map[string]ProviderConfig
	mutex     sync.RWMutex
}

var (
	defaultRegistry     *ProviderRegistry
	defaultRegistryOnce sync.Once
)

// GetDefaultRegistry returns the process-wide registry holding every known provider.
func GetDefaultRegistry() *ProviderRegistry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewProviderRegistry()
	})
	return defaultRegistry
}

// NewProviderRegistry creates a new provider registry with the specified providers.
// If no providers are specified, all known providers are registered by default.
func NewProviderRegistry(providerNames ...string) *ProviderRegistry {
	registry := &ProviderRegistry{
		providers: make(map[string]ProviderConstructor),
		configs:   make(map[string]ProviderConfig),
	}

	standardConfigs := getStandardConfigs()
	for name, cfg := range standardConfigs {
		registry.configs[name] = cfg
	}

	register := func(name string) {
		cfg, ok := standardConfigs[name]
		if !ok {
			return
		}
		registry.providers[name] = func(apiKey, model string, extraHeaders map[string]string) Provider {
			return NewGenericProvider(apiKey, model, cfg, extraHeaders)
		}
	}

	if len(providerNames) == 0 {
		for name := range standardConfigs {
			register(name)
		}
	} else {
		for _, name := range providerNames {
			register(name)
		}
	}

	return registry
}

// getStandardConfigs returns the OpenAI-compatible backends known out of the box.
func getStandardConfigs() map[string]ProviderConfig {
	jsonHeaders := func() map[string]string {
		return map[string]string{"Content-Type": "application/json"}
	}
	return map[string]ProviderConfig{
		"openai": {
			Name:                       "openai",
			Endpoint:                   "https://api.openai.com/v1/chat/completions",
			AuthHeader:                 "Authorization",
			AuthPrefix:                 "Bearer ",
			RequiredHeaders:            jsonHeaders(),
			SupportsStructuredResponse: true,
		},
		"ollama": {
			Name:                       "ollama",
			Endpoint:                   "http://localhost:11434/v1/chat/completions",
			AuthHeader:                 "Authorization",
			AuthPrefix:                 "Bearer ",
			RequiredHeaders:            jsonHeaders(),
			SupportsStructuredResponse: true,
		},
		"vllm": {
			Name:                       "vllm",
			Endpoint:                   "http://localhost:8000/v1/chat/completions",
			AuthHeader:                 "Authorization",
			AuthPrefix:                 "Bearer ",
			RequiredHeaders:            jsonHeaders(),
			SupportsStructuredResponse: true,
		},
		"lmstudio": {
			Name:                       "lmstudio",
			Endpoint:                   "http://localhost:1234/v1/chat/completions",
			RequiredHeaders:            jsonHeaders(),
			SupportsStructuredResponse: true,
		},
		"groq": {
			Name:                       "groq",
			Endpoint:                   "https://api.groq.com/openai/v1/chat/completions",
			AuthHeader:                 "Authorization",
			AuthPrefix:                 "Bearer ",
			RequiredHeaders:            jsonHeaders(),
			SupportsStructuredResponse: true,
		},
		"deepseek": {
			Name:            "deepseek",
			Endpoint:        "https://api.deepseek.com/chat/completions",
			AuthHeader:      "Authorization",
			AuthPrefix:      "Bearer ",
			RequiredHeaders: jsonHeaders(),
		},
		"openrouter": {
			Name:                       "openrouter",
			Endpoint:                   "https://openrouter.ai/api/v1/chat/completions",
			AuthHeader:                 "Authorization",
			AuthPrefix:                 "Bearer ",
			RequiredHeaders:            jsonHeaders(),
			SupportsStructuredResponse: true,
		},
	}
}

// GetProviderConfig returns the configuration for a named provider
// Returns the config and a boolean indicating whether the provider was found
func (r *ProviderRegistry) GetProviderConfig(name string) (ProviderConfig, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	cfg, exists := r.configs[name]
	return cfg, exists
}

// RegisterProviderConfig registers a configuration together with a generic
// constructor for it.
func (r *ProviderRegistry) RegisterProviderConfig(name string, cfg ProviderConfig) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.configs[name] = cfg
	r.providers[name] = func(apiKey, model string, extraHeaders map[string]string) Provider {
		return NewGenericProvider(apiKey, model, cfg, extraHeaders)
	}
}

// Register adds a new provider constructor to the registry.
func (r *ProviderRegistry) Register(name string, constructor ProviderConstructor) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.providers[name] = constructor
}

// Names returns the registered provider names in sorted order.
func (r *ProviderRegistry) Names() []string {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Get creates a provider instance by name.
func (r *ProviderRegistry) Get(name, apiKey, model string, extraHeaders map[string]string) (Provider, error) {
	r.mutex.RLock()
	constructor, exists := r.providers[name]
	r.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown provider: %s", name)
	}

	return constructor(apiKey, model, extraHeaders), nil
}
