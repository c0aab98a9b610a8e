package optimizer

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/persona"
)

func TestParseProposal(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{"json", `{"proposed_instruction": "Be a pirate."}`, "Be a pirate."},
		{"fenced json", "```json\n{\"proposed_instruction\": \"Be bold.\"}\n```", "Be bold."},
		{"json with prose", `Here you go: {"proposed_instruction": "Keep facts."} Enjoy!`, "Keep facts."},
		{"blank json", `{"proposed_instruction": "   "}`, ""},
		{"wrong json", `{"instruction": "x"}`, ""},
		{"broken json", `{"proposed_instruction": `, ""},
		{"raw text", "Speak in character.", "Speak in character."},
		{"quoted raw text", `"Speak in character."`, "Speak in character."},
		{"prefixed raw text", "Instruction: Speak in character.", "Speak in character."},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseProposal(tt.response))
		})
	}
}

func TestBuildProposalPrompt(t *testing.T) {
	candidates := []*Candidate{{Index: 0, Instruction: persona.RephraseInstructions}}
	summary := summarizeDataset(dataset.Default()[:8])

	p := buildProposalPrompt(persona.RephraseSignature(), summary, candidates, proposalTips[1])
	assert.Contains(t, p.Input, "input raw_answer")
	assert.Contains(t, p.Input, "output response")
	assert.Contains(t, p.Input, "1. "+persona.RephraseInstructions)
	assert.Contains(t, p.Input, "8 examples.")
	assert.Equal(t, []string{proposalTips[1]}, p.Directives)
	assert.Contains(t, p.Output, "proposed_instruction")

	p = buildProposalPrompt(persona.RephraseSignature(), summary, candidates, "")
	assert.Empty(t, p.Directives)
}

func TestSummarizeDataset(t *testing.T) {
	summary := summarizeDataset(dataset.Default()[:8])
	assert.Contains(t, summary, "Personas: noir detective, pirate, radio DJ, sports announcer, surfer dude.")
	assert.Contains(t, summary, "- What programming languages does Matthew know?")
	assert.NotContains(t, summary, "What is Matthew's educational background?")
}

func TestPlanRun(t *testing.T) {
	cfg := DefaultConfig()
	p := cfg.planRun(8, 2, 0)
	assert.Equal(t, Plan{Candidates: 10, Trials: 15, ProposerCalls: 9, TaskCalls: 32, MetricCalls: 32}, p)
	assert.Equal(t, 73, p.TotalCalls())

	cfg.MaxBootstrappedDemos = 4
	cfg.MaxLabeledDemos = 1
	p = cfg.planRun(8, 2, 3)
	assert.Equal(t, 7+32, p.TaskCalls)

	cfg = DefaultConfig()
	cfg.MinibatchFullEvalSteps = 5
	p = cfg.planRun(8, 10, 0)
	assert.Equal(t, 10+15*2+3*10, p.TaskCalls)
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.MinibatchSize = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.BootstrapThreshold = 1.5
	assert.Error(t, bad.Validate())
}

func TestUCBPrefersUnobserved(t *testing.T) {
	assert.True(t, math.IsInf(ucbScore(&Candidate{}, 3), 1))

	hi := &Candidate{Observed: []float64{0.9, 0.9}}
	lo := &Candidate{Observed: []float64{0.1, 0.1}}
	assert.Greater(t, ucbScore(hi, 4), ucbScore(lo, 4))

	rare := &Candidate{Observed: []float64{0.5}}
	common := &Candidate{Observed: []float64{0.5, 0.5, 0.5, 0.5, 0.5}}
	assert.Greater(t, ucbScore(rare, 6), ucbScore(common, 6))
}

func TestSearchPick(t *testing.T) {
	s := &search{
		candidates: []*Candidate{
			{Index: 0, Observed: []float64{0.5, 0.5}},
			{Index: 1, Observed: []float64{0.5, 0.5}},
			{Index: 2},
		},
		queue:    []int{2},
		observed: 4,
	}
	assert.Equal(t, 2, s.pick().Index)
	assert.Empty(t, s.queue)

	s.candidates[2].Observed = []float64{0.5, 0.5}
	s.observed = 6
	assert.Equal(t, 0, s.pick().Index, "ties go to the lower index")
}

func TestSearchBestAndPromising(t *testing.T) {
	s := &search{candidates: []*Candidate{
		{Index: 0, Observed: []float64{0.4}, FullScores: []float64{0.4}},
		{Index: 1, Observed: []float64{0.8}},
		{Index: 2, Observed: []float64{0.6}},
		{Index: 3},
	}}
	assert.Equal(t, 1, s.promising().Index)

	s.updateBest()
	assert.Equal(t, 0, s.best)

	s.candidates[1].FullScores = []float64{0.4}
	s.updateBest()
	assert.Equal(t, 0, s.best, "ties keep the earlier candidate")

	s.candidates[2].FullScores = []float64{0.7}
	s.updateBest()
	assert.Equal(t, 2, s.best)
	assert.InDelta(t, 0.7, s.bestScore, 1e-9)

	assert.Nil(t, s.promising())
}

func TestSampleIndices(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	assert.Equal(t, []int{0, 1, 2}, sampleIndices(rng, 3, 5))

	got := sampleIndices(rng, 10, 3)
	require.Len(t, got, 3)
	seen := make(map[int]bool)
	for _, i := range got {
		assert.False(t, seen[i])
		assert.GreaterOrEqual(t, i, 0)
		assert.Less(t, i, 10)
		seen[i] = true
	}
}
