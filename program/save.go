package program

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FormatVersion is bumped whenever the saved layout changes incompatibly.
const FormatVersion = 1

// Metadata describes the run that produced a saved program.
type Metadata struct {
	RunID         string    `json:"run_id,omitempty"`
	StudentModel  string    `json:"student_model,omitempty"`
	ProposerModel string    `json:"proposer_model,omitempty"`
	JudgeModel    string    `json:"judge_model,omitempty"`
	BaselineScore float64   `json:"baseline_score"`
	BestScore     float64   `json:"best_score"`
	NumTrials     int       `json:"num_trials"`
	NumCandidates int       `json:"num_candidates"`
	SavedAt       time.Time `json:"saved_at"`
}

type savedProgram struct {
	Version   int       `json:"version"`
	Signature Signature `json:"signature"`
	Demos     []Demo    `json:"demos"`
	Metadata  Metadata  `json:"metadata"`
}

// Save writes p and meta to path as indented JSON. SavedAt is filled in
// when zero.
func Save(path string, p *Predict, meta Metadata) error {
	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now().UTC()
	}
	demos := p.Demos
	if demos == nil {
		demos = []Demo{}
	}
	data, err := json.MarshalIndent(savedProgram{
		Version:   FormatVersion,
		Signature: p.Signature,
		Demos:     demos,
		Metadata:  meta,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode program: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write program: %w", err)
	}
	return nil
}

// Load reads a program written by Save.
func Load(path string) (*Predict, Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to read program: %w", err)
	}
	var saved savedProgram
	if err := json.Unmarshal(data, &saved); err != nil {
		return nil, Metadata{}, fmt.Errorf("failed to decode program: %w", err)
	}
	if saved.Version != FormatVersion {
		return nil, Metadata{}, fmt.Errorf("unsupported program version %d", saved.Version)
	}
	if err := saved.Signature.Validate(); err != nil {
		return nil, Metadata{}, err
	}
	p := NewPredict(saved.Signature)
	if len(saved.Demos) > 0 {
		p.Demos = saved.Demos
	}
	return p, saved.Metadata, nil
}
