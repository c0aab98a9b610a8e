package optimizer

import (
	"context"
	"math/rand"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/program"
)

// selectDemos picks labeled demos first, then bootstrapped ones: training
// examples whose student prediction scores at least BootstrapThreshold.
func (o *InstructionOptimizer) selectDemos(ctx context.Context, student *program.Predict, trainset []dataset.Example, rng *rand.Rand) ([]program.Demo, error) {
	var demos []program.Demo
	used := make(map[int]bool)

	for i, ex := range trainset {
		if len(demos) >= o.config.MaxLabeledDemos {
			break
		}
		if !ex.HasLabel() {
			continue
		}
		demos = append(demos, demoFrom(ex, ex.Response))
		used[i] = true
	}

	if o.config.MaxBootstrappedDemos == 0 {
		return demos, nil
	}

	bootstrapped := 0
	for _, i := range rng.Perm(len(trainset)) {
		if bootstrapped >= o.config.MaxBootstrappedDemos {
			break
		}
		if used[i] {
			continue
		}
		score, pred, err := o.scoreExample(ctx, student, trainset[i])
		if err != nil {
			return nil, err
		}
		if score < o.config.BootstrapThreshold {
			o.logger.Debug("Bootstrap attempt below threshold", "example", i, "score", score)
			continue
		}
		demos = append(demos, demoFrom(trainset[i], pred.Get(dataset.FieldResponse)))
		bootstrapped++
	}

	o.logger.Info("Demos selected", "demos", len(demos), "bootstrapped", bootstrapped)
	return demos, nil
}

func demoFrom(ex dataset.Example, response string) program.Demo {
	d := program.Demo(ex.Inputs())
	d[dataset.FieldResponse] = response
	return d
}
