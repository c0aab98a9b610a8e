package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/history"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/program"
	"github.com/teilomillet/personatune/utils"
)

// ErrNotConfirmed is returned when the confirm hook declines the run plan.
var ErrNotConfirmed = errors.New("optimization run not confirmed")

// Metric scores a prediction for an example in [0,1].
type Metric func(ctx context.Context, ex dataset.Example, pred program.Prediction) (float64, error)

// TrialKind tells whether a trial scored a minibatch or the whole validation set.
type TrialKind string

const (
	TrialFull      TrialKind = "full"
	TrialMinibatch TrialKind = "minibatch"
)

// Candidate is one instruction under consideration. Index 0 is always the
// original instruction.
type Candidate struct {
	Index       int
	Instruction string
	Tip         string

	// Observed holds every trial score, minibatch or full.
	Observed []float64
	// FullScores holds full validation scores only.
	FullScores []float64
}

// Mean returns the mean observed score, or 0 when unobserved.
func (c *Candidate) Mean() float64 {
	return mean(c.Observed)
}

// FullScore returns the mean full validation score and whether one exists.
func (c *Candidate) FullScore() (float64, bool) {
	if len(c.FullScores) == 0 {
		return 0, false
	}
	return mean(c.FullScores), true
}

// Trial records one scored evaluation.
type Trial struct {
	Number    int
	Candidate int
	Kind      TrialKind
	Examples  []int
	Score     float64
	BestScore float64
	Duration  time.Duration
}

// TrialCallback is called after every trial.
type TrialCallback func(trial Trial, candidate *Candidate)

// Plan is the estimated cost of a run, shown to the confirm hook.
type Plan struct {
	Candidates    int
	Trials        int
	ProposerCalls int
	TaskCalls     int
	MetricCalls   int
}

// TotalCalls is the estimated number of LM calls.
func (p Plan) TotalCalls() int {
	return p.ProposerCalls + p.TaskCalls + p.MetricCalls
}

// ConfirmFunc decides whether a planned run should proceed.
type ConfirmFunc func(plan Plan) bool

// Recorder receives run history. *history.Store implements it.
type Recorder interface {
	CreateRun(ctx context.Context, run history.Run) error
	RecordCandidate(ctx context.Context, runID string, c history.Candidate) error
	RecordTrial(ctx context.Context, runID string, t history.Trial) error
	FinishRun(ctx context.Context, runID string, baseline float64, bestCandidate int, bestScore float64) error
}

// Result is the outcome of Compile.
type Result struct {
	RunID         string
	Program       *program.Predict
	BestCandidate int
	BestScore     float64
	BaselineScore float64
	Candidates    []*Candidate
	Trials        []Trial
	Plan          Plan
}

type OptimizerOption func(*InstructionOptimizer)

// InstructionOptimizer searches for the instruction that maximizes a metric.
type InstructionOptimizer struct {
	taskModel    llm.LLM
	promptModel  llm.LLM
	metric       Metric
	metricModel  string
	config       Config
	logger       utils.Logger
	debugManager *utils.DebugManager
	recorder     Recorder
	onTrial      TrialCallback
	confirm      ConfirmFunc
}
