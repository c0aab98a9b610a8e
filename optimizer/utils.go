package optimizer

import (
	"math"
	"math/rand"

	"github.com/teilomillet/personatune/utils"
)

func WithNumCandidates(n int) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.NumCandidates = n
	}
}

func WithNumTrials(n int) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.NumTrials = n
	}
}

func WithMinibatchSize(n int) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.MinibatchSize = n
	}
}

func WithMinibatchFullEvalSteps(n int) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.MinibatchFullEvalSteps = n
	}
}

func WithMaxBootstrappedDemos(n int) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.MaxBootstrappedDemos = n
	}
}

func WithMaxLabeledDemos(n int) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.MaxLabeledDemos = n
	}
}

func WithBootstrapThreshold(threshold float64) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.BootstrapThreshold = threshold
	}
}

func WithSeed(seed int64) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config.Seed = seed
	}
}

// WithConfig replaces every search parameter at once.
func WithConfig(cfg Config) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.config = cfg
	}
}

// WithMetricModel names the model behind the metric in run history.
func WithMetricModel(model string) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.metricModel = model
	}
}

// WithHistory records the run in r.
func WithHistory(r Recorder) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.recorder = r
	}
}

func WithTrialCallback(cb TrialCallback) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.onTrial = cb
	}
}

// WithConfirm gates the run on fn. Without it the run is unattended.
func WithConfirm(fn ConfirmFunc) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.confirm = fn
	}
}

func WithDebugManager(dm *utils.DebugManager) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.debugManager = dm
	}
}

func WithLogger(logger utils.Logger) OptimizerOption {
	return func(o *InstructionOptimizer) {
		o.logger = logger
	}
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// ucbScore is the UCB1 upper bound for a candidate observed n times out of
// total observations.
func ucbScore(c *Candidate, total int) float64 {
	n := len(c.Observed)
	if n == 0 {
		return math.Inf(1)
	}
	return c.Mean() + ucbExploration*math.Sqrt(2*math.Log(float64(total))/float64(n))
}

// sampleIndices draws k distinct indices from [0,n), or all of them when k >= n.
func sampleIndices(rng *rand.Rand, n, k int) []int {
	if k >= n {
		return indexRange(n)
	}
	return rng.Perm(n)[:k]
}

func indexRange(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}
