package config

import (
	"time"

	"github.com/teilomillet/personatune/utils"
)

type ConfigOption func(*Config)

func ApplyOptions(cfg *Config, options ...ConfigOption) {
	for _, option := range options {
		option(cfg)
	}
}

func SetProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

func SetBaseURL(baseURL string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = baseURL
	}
}

func SetAPIKey(apiKey string) ConfigOption {
	return func(c *Config) {
		c.APIKey = apiKey
	}
}

// SetModel changes the model of one role. Unknown roles are ignored.
func SetModel(role Role, model string) ConfigOption {
	return func(c *Config) {
		if rc, err := c.Role(role); err == nil {
			rc.Model = model
		}
	}
}

func SetMaxTokens(role Role, maxTokens int) ConfigOption {
	return func(c *Config) {
		if maxTokens < 1 {
			maxTokens = 1
		}
		if rc, err := c.Role(role); err == nil {
			rc.MaxTokens = maxTokens
		}
	}
}

func SetTemperature(role Role, temperature float64) ConfigOption {
	return func(c *Config) {
		if rc, err := c.Role(role); err == nil {
			rc.Temperature = &temperature
		}
	}
}

func SetTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

func SetMaxRetries(maxRetries int) ConfigOption {
	return func(c *Config) {
		c.MaxRetries = maxRetries
	}
}

func SetRetryDelay(retryDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.RetryDelay = retryDelay
	}
}

func SetRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

func SetLogLevel(level utils.LogLevel) ConfigOption {
	return func(c *Config) {
		c.LogLevel = level
	}
}

func SetSeed(seed int) ConfigOption {
	return func(c *Config) {
		c.Seed = &seed
	}
}

func SetOutputPath(path string) ConfigOption {
	return func(c *Config) {
		c.OutputPath = path
	}
}

func SetExamplesPath(path string) ConfigOption {
	return func(c *Config) {
		c.ExamplesPath = path
	}
}

func SetHistoryPath(path string) ConfigOption {
	return func(c *Config) {
		c.HistoryPath = path
	}
}

func SetExtraHeaders(headers map[string]string) ConfigOption {
	return func(c *Config) {
		if c.ExtraHeaders == nil {
			c.ExtraHeaders = make(map[string]string)
		}
		for k, v := range headers {
			c.ExtraHeaders[k] = v
		}
	}
}

func SetNumCandidates(n int) ConfigOption {
	return func(c *Config) {
		c.Optimizer.NumCandidates = n
	}
}

func SetNumTrials(n int) ConfigOption {
	return func(c *Config) {
		c.Optimizer.NumTrials = n
	}
}

func SetMinibatchSize(n int) ConfigOption {
	return func(c *Config) {
		c.Optimizer.MinibatchSize = n
	}
}

func SetOptimizerSeed(seed int64) ConfigOption {
	return func(c *Config) {
		c.Optimizer.Seed = seed
	}
}
