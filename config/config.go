// Package config loads and validates the settings for a personatune run.
//
// Settings come from three layers, applied in order: built-in defaults that
// reproduce the reference run against a local Ollama server, environment
// variables under the PERSONA_ prefix, and ConfigOptions (used by the CLI to
// apply flags).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"

	"github.com/teilomillet/personatune/utils"
)

// Role names one of the three language-model backends used by a run.
type Role string

const (
	// RoleStudent runs the rephrase task itself.
	RoleStudent Role = "student"
	// RoleProposer drafts candidate instructions.
	RoleProposer Role = "proposer"
	// RoleJudge scores rephrased responses.
	RoleJudge Role = "judge"
)

// Roles lists every backend role in a stable order.
var Roles = []Role{RoleStudent, RoleProposer, RoleJudge}

// RoleConfig holds the per-backend knobs.
type RoleConfig struct {
	Model     string `env:"MODEL" validate:"required"`
	MaxTokens int    `env:"MAX_TOKENS" validate:"min=1"`
	// Temperature is nil when the backend default should be used.
	Temperature *float64 `env:"TEMPERATURE" validate:"omitempty,min=0,max=2"`
}

// OptimizerConfig holds the instruction search parameters.
type OptimizerConfig struct {
	NumCandidates          int   `env:"NUM_CANDIDATES" validate:"min=1"`
	NumTrials              int   `env:"NUM_TRIALS" validate:"min=1"`
	MinibatchSize          int   `env:"MINIBATCH_SIZE" validate:"min=1"`
	MinibatchFullEvalSteps int   `env:"MINIBATCH_FULL_EVAL_STEPS" validate:"min=1"`
	MaxBootstrappedDemos   int   `env:"MAX_BOOTSTRAPPED_DEMOS" validate:"min=0"`
	MaxLabeledDemos        int   `env:"MAX_LABELED_DEMOS" validate:"min=0"`
	TrainSize              int   `env:"TRAIN_SIZE" validate:"min=1"`
	Seed                   int64 `env:"SEED"`
}

// Config is the full configuration of a run.
type Config struct {
	Provider          string         `env:"PROVIDER" validate:"required"`
	BaseURL           string         `env:"API_BASE" validate:"omitempty,url"`
	APIKey            string         `env:"API_KEY"`
	Timeout           time.Duration  `env:"TIMEOUT" validate:"min=0"`
	MaxRetries        int            `env:"MAX_RETRIES" validate:"min=0"`
	RetryDelay        time.Duration  `env:"RETRY_DELAY" validate:"min=0"`
	RequestsPerSecond float64        `env:"REQUESTS_PER_SECOND" validate:"min=0"`
	BreakerFailures   uint32         `env:"BREAKER_FAILURES"`
	BreakerTimeout    time.Duration  `env:"BREAKER_TIMEOUT"`
	Seed              *int           `env:"LLM_SEED"`
	LogLevel          utils.LogLevel `env:"LOG_LEVEL"`
	OutputPath        string         `env:"OUTPUT" validate:"required"`
	ExamplesPath      string         `env:"EXAMPLES"`
	HistoryPath       string         `env:"HISTORY_DB"`
	ExtraHeaders      map[string]string

	Student   RoleConfig      `envPrefix:"STUDENT_"`
	Proposer  RoleConfig      `envPrefix:"PROPOSER_"`
	Judge     RoleConfig      `envPrefix:"JUDGE_"`
	Optimizer OptimizerConfig `envPrefix:"OPT_"`
}

// ModelConfig is the flattened view of Config that a single backend needs.
type ModelConfig struct {
	Role              Role
	Provider          string
	BaseURL           string
	APIKey            string
	Model             string
	MaxTokens         int
	Temperature       *float64
	Seed              *int
	Timeout           time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RequestsPerSecond float64
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	ExtraHeaders      map[string]string
}

// EnvPrefix is prepended to every environment variable name.
const EnvPrefix = "PERSONA_"

var validate = validator.New()

// NewConfig returns the defaults of the reference run: an Ollama server
// speaking the OpenAI-compatible API, smollm2 as the student and gemma3:12b
// as both proposer and judge.
func NewConfig() *Config {
	return &Config{
		Provider:        "ollama",
		BaseURL:         "http://localhost:11434/v1",
		APIKey:          "ollama",
		Timeout:         2 * time.Minute,
		MaxRetries:      0,
		RetryDelay:      2 * time.Second,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
		LogLevel:        utils.LogLevelWarn,
		OutputPath:      "optimized_program.json",
		ExtraHeaders:    make(map[string]string),
		Student: RoleConfig{
			Model:       "smollm2:latest",
			MaxTokens:   300,
			Temperature: floatPtr(0),
		},
		Proposer: RoleConfig{
			Model:       "gemma3:12b",
			MaxTokens:   1024,
			Temperature: floatPtr(1.0),
		},
		Judge: RoleConfig{
			Model:     "gemma3:12b",
			MaxTokens: 50,
		},
		Optimizer: OptimizerConfig{
			NumCandidates:          10,
			NumTrials:              15,
			MinibatchSize:          2,
			MinibatchFullEvalSteps: 10,
			TrainSize:              8,
			Seed:                   9,
		},
	}
}

// LoadConfig returns the defaults overridden by PERSONA_* environment
// variables. The result is not validated; call Validate after applying
// any further options.
func LoadConfig() (*Config, error) {
	cfg := NewConfig()
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.ExtraHeaders == nil {
		cfg.ExtraHeaders = make(map[string]string)
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=value lines from path into the process environment
// so LoadConfig sees them. Variables that are already set win. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Validate checks the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Role returns the per-role settings for r.
func (c *Config) Role(r Role) (*RoleConfig, error) {
	switch r {
	case RoleStudent:
		return &c.Student, nil
	case RoleProposer:
		return &c.Proposer, nil
	case RoleJudge:
		return &c.Judge, nil
	default:
		return nil, fmt.Errorf("unknown role: %q", r)
	}
}

// ForRole flattens the shared and per-role settings for one backend.
func (c *Config) ForRole(r Role) (*ModelConfig, error) {
	rc, err := c.Role(r)
	if err != nil {
		return nil, err
	}
	headers := make(map[string]string, len(c.ExtraHeaders))
	for k, v := range c.ExtraHeaders {
		headers[k] = v
	}
	return &ModelConfig{
		Role:              r,
		Provider:          strings.ToLower(c.Provider),
		BaseURL:           c.BaseURL,
		APIKey:            c.APIKey,
		Model:             rc.Model,
		MaxTokens:         rc.MaxTokens,
		Temperature:       rc.Temperature,
		Seed:              c.Seed,
		Timeout:           c.Timeout,
		MaxRetries:        c.MaxRetries,
		RetryDelay:        c.RetryDelay,
		RequestsPerSecond: c.RequestsPerSecond,
		BreakerFailures:   c.BreakerFailures,
		BreakerTimeout:    c.BreakerTimeout,
		ExtraHeaders:      headers,
	}, nil
}

func floatPtr(f float64) *float64 { return &f }
