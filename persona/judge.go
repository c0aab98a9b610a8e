package persona

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/program"
	"github.com/teilomillet/personatune/utils"
)

// JudgeRubric instructs the judge backend.
const JudgeRubric = `Score a chatbot response 0-10.
10 = strongly in-character voice AND all key facts from raw_answer preserved.
0  = wrong persona voice OR key facts missing/wrong.
Output only the integer.`

const (
	fieldScore = "score"
	maxRating  = 10
)

// JudgeSignature maps (persona, raw_answer, response) to an integer rating.
func JudgeSignature() program.Signature {
	return program.Signature{
		Name:         "JudgeScore",
		Instructions: JudgeRubric,
		Inputs: []program.Field{
			{Name: dataset.FieldPersona, Description: "the persona the response should embody"},
			{Name: dataset.FieldRawAnswer, Description: "factual source material that must be preserved"},
			{Name: dataset.FieldResponse, Description: "the response to evaluate"},
		},
		Outputs: []program.Field{
			{Name: fieldScore, Description: "integer 0-10"},
		},
	}
}

// Judge scores rephrased responses with an LM. Replies that do not parse
// as a rating score 0.
type Judge struct {
	lm            llm.LLM
	signature     program.Signature
	logger        utils.Logger
	parseFailures atomic.Int64
}

// JudgeOption configures a Judge.
type JudgeOption func(*Judge)

// WithJudgeLogger sets the logger used for parse failure warnings.
func WithJudgeLogger(logger utils.Logger) JudgeOption {
	return func(j *Judge) {
		j.logger = logger
	}
}

func NewJudge(lm llm.LLM, opts ...JudgeOption) *Judge {
	j := &Judge{
		lm:        lm,
		signature: JudgeSignature(),
		logger:    lm.GetLogger(),
	}
	for _, opt := range opts {
		opt(j)
	}
	if j.logger == nil {
		j.logger = utils.NewNopLogger()
	}
	return j
}

// Score rates the response in pred for ex in [0,1]. Backend failures are
// returned as errors; an unparseable rating is a score of 0.
func (j *Judge) Score(ctx context.Context, ex dataset.Example, pred program.Prediction) (float64, error) {
	inputs := map[string]string{
		dataset.FieldPersona:   ex.Persona,
		dataset.FieldRawAnswer: ex.RawAnswer,
		dataset.FieldResponse:  pred.Get(dataset.FieldResponse),
	}
	prompt, err := program.BuildPrompt(j.signature, nil, inputs)
	if err != nil {
		return 0, err
	}
	reply, err := j.lm.Generate(ctx, prompt)
	if err != nil {
		return 0, fmt.Errorf("judge call failed: %w", err)
	}

	raw := program.ParseOutput(j.signature, reply).Get(fieldScore)
	score, ok := parseScore(raw)
	if !ok {
		j.parseFailures.Add(1)
		j.logger.Warn("Judge reply is not a rating, scoring as zero", "persona", ex.Persona, "reply", reply)
	}
	return score, nil
}

// ParseFailures returns how many replies scored zero because they could not be parsed.
func (j *Judge) ParseFailures() int64 {
	return j.parseFailures.Load()
}

// ParseScore turns a judge reply into a score in [0,1]: the first
// whitespace-separated token must be an integer from 0 to 10. Anything else
// scores 0.
func ParseScore(reply string) float64 {
	score, _ := parseScore(reply)
	return score
}

func parseScore(reply string) (float64, bool) {
	tokens := strings.Fields(reply)
	if len(tokens) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(tokens[0])
	if err != nil || n < 0 || n > maxRating {
		return 0, false
	}
	return float64(n) / maxRating, true
}
