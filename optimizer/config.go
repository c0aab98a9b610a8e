// Package optimizer searches over natural-language task instructions. A
// proposer LM drafts candidate instructions, each candidate is scored by
// running the task on validation examples through a metric, and the best
// fully evaluated candidate wins.
package optimizer

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Config holds the search parameters.
type Config struct {
	// NumCandidates is the number of instructions considered, the original
	// included. The proposer drafts NumCandidates-1 more.
	NumCandidates int `validate:"min=1"`

	// NumTrials is the number of scored trials after the baseline.
	NumTrials int `validate:"min=1"`

	// MinibatchSize is the number of validation examples scored per trial.
	// When it covers the whole validation set every trial is a full evaluation.
	MinibatchSize int `validate:"min=1"`

	// MinibatchFullEvalSteps is how often, in trials, the most promising
	// candidate gets a full evaluation. A final one always runs after the
	// last trial.
	MinibatchFullEvalSteps int `validate:"min=1"`

	// MaxBootstrappedDemos caps demos taken from successful student runs on
	// the training set.
	MaxBootstrappedDemos int `validate:"min=0"`

	// MaxLabeledDemos caps demos taken from labeled training examples.
	MaxLabeledDemos int `validate:"min=0"`

	// BootstrapThreshold is the minimum metric score for a bootstrapped demo.
	BootstrapThreshold float64 `validate:"min=0,max=1"`

	// Seed drives candidate order and minibatch sampling.
	Seed int64
}

// DefaultConfig returns pure instruction search: ten candidates, fifteen
// trials, minibatches of two and no demos.
func DefaultConfig() Config {
	return Config{
		NumCandidates:          DefaultNumCandidates,
		NumTrials:              DefaultNumTrials,
		MinibatchSize:          DefaultMinibatchSize,
		MinibatchFullEvalSteps: DefaultMinibatchFullEvalSteps,
		BootstrapThreshold:     DefaultBootstrapThreshold,
		Seed:                   DefaultSeed,
	}
}

var validate = validator.New()

// Validate checks the parameters.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid optimizer config: %w", err)
	}
	return nil
}
