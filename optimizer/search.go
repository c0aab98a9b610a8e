package optimizer

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/history"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/program"
	"github.com/teilomillet/personatune/utils"
)

// NewInstructionOptimizer creates an optimizer that runs the task on
// taskModel, drafts instructions with promptModel and scores with metric.
func NewInstructionOptimizer(taskModel, promptModel llm.LLM, metric Metric, opts ...OptimizerOption) *InstructionOptimizer {
	o := &InstructionOptimizer{
		taskModel:   taskModel,
		promptModel: promptModel,
		metric:      metric,
		config:      DefaultConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = utils.NewNopLogger()
	}
	if o.debugManager == nil {
		o.debugManager = utils.NewDebugManager(o.logger, utils.DebugOptions{})
	}
	return o
}

// Config returns the search parameters in effect.
func (o *InstructionOptimizer) Config() Config {
	return o.config
}

// search holds the mutable state of one Compile call.
type search struct {
	runID      string
	rng        *rand.Rand
	candidates []*Candidate
	queue      []int
	trials     []Trial
	observed   int
	best       int
	bestScore  float64
}

// Compile searches for the best instruction for student. The returned
// program carries the winning instruction and the selected demos; student
// itself is not modified.
func (o *InstructionOptimizer) Compile(ctx context.Context, student *program.Predict, trainset, valset []dataset.Example) (*Result, error) {
	if student == nil {
		return nil, errors.New("student program is required")
	}
	if len(trainset) == 0 || len(valset) == 0 {
		return nil, errors.New("trainset and valset must be non-empty")
	}
	if o.taskModel == nil || o.promptModel == nil || o.metric == nil {
		return nil, errors.New("task model, prompt model and metric are required")
	}
	if err := o.config.Validate(); err != nil {
		return nil, err
	}
	if err := student.Signature.Validate(); err != nil {
		return nil, err
	}

	labeled := 0
	for _, ex := range trainset {
		if ex.HasLabel() {
			labeled++
		}
	}
	plan := o.config.planRun(len(trainset), len(valset), labeled)
	if o.confirm != nil && !o.confirm(plan) {
		return nil, ErrNotConfirmed
	}
	o.logger.Info("Starting instruction search", "candidates", plan.Candidates, "trials", plan.Trials,
		"estimated_calls", plan.TotalCalls())

	s := &search{
		runID: uuid.NewString(),
		rng:   rand.New(rand.NewSource(o.config.Seed)),
	}

	if err := o.startRun(ctx, s.runID); err != nil {
		return nil, err
	}

	demos, err := o.selectDemos(ctx, student, trainset, s.rng)
	if err != nil {
		return nil, fmt.Errorf("demo selection failed: %w", err)
	}

	s.candidates, err = o.proposeCandidates(ctx, student, trainset)
	if err != nil {
		return nil, err
	}
	for _, c := range s.candidates {
		if err := o.recordCandidate(ctx, s.runID, c); err != nil {
			return nil, err
		}
	}

	programFor := func(c *Candidate) *program.Predict {
		return student.WithInstructions(c.Instruction).WithDemos(demos)
	}
	all := indexRange(len(valset))

	if err := o.fullEval(ctx, s, 0, 0, programFor, valset, all); err != nil {
		return nil, err
	}
	baseline := s.bestScore

	for _, i := range s.rng.Perm(len(s.candidates)) {
		if i != 0 {
			s.queue = append(s.queue, i)
		}
	}

	fullEveryTrial := o.config.fullEveryTrial(len(valset))
	for t := 1; t <= o.config.NumTrials; t++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := s.pick()
		if fullEveryTrial {
			if err := o.fullEval(ctx, s, t, c.Index, programFor, valset, all); err != nil {
				return nil, err
			}
			continue
		}

		batch := sampleIndices(s.rng, len(valset), o.config.MinibatchSize)
		if err := o.runTrial(ctx, s, t, c, TrialMinibatch, programFor(c), valset, batch); err != nil {
			return nil, err
		}
		if t%o.config.MinibatchFullEvalSteps == 0 || t == o.config.NumTrials {
			if next := s.promising(); next != nil {
				if err := o.fullEval(ctx, s, t, next.Index, programFor, valset, all); err != nil {
					return nil, err
				}
			}
		}
	}

	winner := s.candidates[s.best]
	if err := o.finishRun(ctx, s.runID, baseline, winner.Index, s.bestScore); err != nil {
		return nil, err
	}
	o.logger.Info("Instruction search finished", "best_candidate", winner.Index, "best_score", s.bestScore,
		"baseline", baseline)

	return &Result{
		RunID:         s.runID,
		Program:       programFor(winner),
		BestCandidate: winner.Index,
		BestScore:     s.bestScore,
		BaselineScore: baseline,
		Candidates:    s.candidates,
		Trials:        s.trials,
		Plan:          plan,
	}, nil
}

func (o *InstructionOptimizer) fullEval(ctx context.Context, s *search, trial, idx int, programFor func(*Candidate) *program.Predict, valset []dataset.Example, all []int) error {
	c := s.candidates[idx]
	return o.runTrial(ctx, s, trial, c, TrialFull, programFor(c), valset, all)
}

func (o *InstructionOptimizer) runTrial(ctx context.Context, s *search, number int, c *Candidate, kind TrialKind, p *program.Predict, valset []dataset.Example, indices []int) error {
	start := time.Now()
	score, err := o.evaluate(ctx, p, valset, indices)
	if err != nil {
		return fmt.Errorf("trial %d (candidate %d): %w", number, c.Index, err)
	}

	c.Observed = append(c.Observed, score)
	s.observed++
	if kind == TrialFull {
		c.FullScores = append(c.FullScores, score)
		s.updateBest()
	}

	trial := Trial{
		Number:    number,
		Candidate: c.Index,
		Kind:      kind,
		Examples:  append([]int(nil), indices...),
		Score:     score,
		BestScore: s.bestScore,
		Duration:  time.Since(start),
	}
	s.trials = append(s.trials, trial)

	o.logger.Info("Trial complete", "trial", number, "candidate", c.Index, "kind", string(kind),
		"score", score, "best", s.bestScore)
	o.debugManager.SaveTrial(number, trial)
	if o.onTrial != nil {
		o.onTrial(trial, c)
	}
	return o.recordTrial(ctx, s.runID, trial)
}

// pick returns the next candidate: unevaluated ones first in seeded random
// order, then the highest UCB1 bound. Ties go to the lower index.
func (s *search) pick() *Candidate {
	if len(s.queue) > 0 {
		idx := s.queue[0]
		s.queue = s.queue[1:]
		return s.candidates[idx]
	}
	best := s.candidates[0]
	bestUCB := ucbScore(best, s.observed)
	for _, c := range s.candidates[1:] {
		if u := ucbScore(c, s.observed); u > bestUCB {
			best, bestUCB = c, u
		}
	}
	return best
}

// promising returns the candidate with the best observed mean that has no
// full evaluation yet, or nil.
func (s *search) promising() *Candidate {
	var out *Candidate
	for _, c := range s.candidates {
		if len(c.FullScores) > 0 || len(c.Observed) == 0 {
			continue
		}
		if out == nil || c.Mean() > out.Mean() {
			out = c
		}
	}
	return out
}

// updateBest keeps the candidate with the highest full score; ties keep the
// lower index.
func (s *search) updateBest() {
	bestScore, found := -1.0, false
	best := 0
	for _, c := range s.candidates {
		score, ok := c.FullScore()
		if !ok {
			continue
		}
		if !found || score > bestScore {
			best, bestScore, found = c.Index, score, true
		}
	}
	if found {
		s.best, s.bestScore = best, bestScore
	}
}

func (o *InstructionOptimizer) startRun(ctx context.Context, runID string) error {
	if o.recorder == nil {
		return nil
	}
	err := o.recorder.CreateRun(ctx, history.Run{
		ID:            runID,
		StudentModel:  o.taskModel.Model(),
		ProposerModel: o.promptModel.Model(),
		JudgeModel:    o.metricModel,
		NumCandidates: o.config.NumCandidates,
		NumTrials:     o.config.NumTrials,
		MinibatchSize: o.config.MinibatchSize,
		Seed:          o.config.Seed,
	})
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

func (o *InstructionOptimizer) recordCandidate(ctx context.Context, runID string, c *Candidate) error {
	if o.recorder == nil {
		return nil
	}
	if err := o.recorder.RecordCandidate(ctx, runID, history.Candidate{Index: c.Index, Instruction: c.Instruction, Tip: c.Tip}); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

func (o *InstructionOptimizer) recordTrial(ctx context.Context, runID string, t Trial) error {
	if o.recorder == nil {
		return nil
	}
	err := o.recorder.RecordTrial(ctx, runID, history.Trial{
		Trial:     t.Number,
		Candidate: t.Candidate,
		Kind:      string(t.Kind),
		Examples:  t.Examples,
		Score:     t.Score,
		BestScore: t.BestScore,
		Duration:  t.Duration,
	})
	if err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}

func (o *InstructionOptimizer) finishRun(ctx context.Context, runID string, baseline float64, best int, bestScore float64) error {
	if o.recorder == nil {
		return nil
	}
	if err := o.recorder.FinishRun(ctx, runID, baseline, best, bestScore); err != nil {
		return fmt.Errorf("history: %w", err)
	}
	return nil
}
