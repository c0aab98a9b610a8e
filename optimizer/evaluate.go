package optimizer

import (
	"context"
	"errors"
	"fmt"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/program"
)

// scoreExample runs the task on ex and scores the prediction. A reply that
// leaves the output empty scores 0; backend and metric errors are returned.
func (o *InstructionOptimizer) scoreExample(ctx context.Context, p *program.Predict, ex dataset.Example) (float64, program.Prediction, error) {
	pred, err := p.Forward(ctx, o.taskModel, ex.Inputs())
	if err != nil {
		if errors.Is(err, program.ErrEmptyOutput) {
			o.logger.Warn("Task produced an empty output, scoring as zero", "persona", ex.Persona, "error", err)
			return 0, pred, nil
		}
		return 0, nil, fmt.Errorf("task failed: %w", err)
	}

	score, err := o.metric(ctx, ex, pred)
	if err != nil {
		return 0, pred, fmt.Errorf("metric failed: %w", err)
	}
	if score < 0 || score > 1 {
		return 0, pred, fmt.Errorf("metric returned %v, want a score in [0,1]", score)
	}
	return score, pred, nil
}

// evaluate returns the mean score of p over the indexed examples.
func (o *InstructionOptimizer) evaluate(ctx context.Context, p *program.Predict, examples []dataset.Example, indices []int) (float64, error) {
	scores := make([]float64, 0, len(indices))
	for _, i := range indices {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		score, _, err := o.scoreExample(ctx, p, examples[i])
		if err != nil {
			return 0, fmt.Errorf("example %d: %w", i, err)
		}
		o.logger.Debug("Scored example", "example", i, "score", score)
		scores = append(scores, score)
	}
	return mean(scores), nil
}
