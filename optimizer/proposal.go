package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/program"
)

// instructionProposal is the structured reply requested from the proposer.
type instructionProposal struct {
	ProposedInstruction string `json:"proposed_instruction" jsonschema:"description=The new instruction for the task" validate:"notblank"`
}

var proposalSchema = llm.SchemaFor(&instructionProposal{})

// proposeCandidates returns the original instruction followed by up to
// NumCandidates-1 drafted ones. Empty and duplicate drafts are dropped.
func (o *InstructionOptimizer) proposeCandidates(ctx context.Context, student *program.Predict, trainset []dataset.Example) ([]*Candidate, error) {
	original := strings.TrimSpace(student.Instructions())
	candidates := []*Candidate{{Index: 0, Instruction: original}}
	seen := map[string]bool{normalizeInstruction(original): true}
	summary := summarizeDataset(trainset)

	for i := 1; i < o.config.NumCandidates; i++ {
		tip := proposalTips[(i-1)%len(proposalTips)]
		instruction, err := o.proposeInstruction(ctx, student.Signature, summary, candidates, tip, i)
		if err != nil {
			return nil, err
		}
		if instruction == "" {
			o.logger.Warn("Proposer returned no usable instruction", "proposal", i)
			continue
		}
		key := normalizeInstruction(instruction)
		if seen[key] {
			o.logger.Debug("Dropping duplicate proposal", "proposal", i)
			continue
		}
		seen[key] = true
		candidates = append(candidates, &Candidate{Index: len(candidates), Instruction: instruction, Tip: tip})
	}

	o.logger.Info("Instruction candidates ready", "candidates", len(candidates), "requested", o.config.NumCandidates)
	return candidates, nil
}

func (o *InstructionOptimizer) proposeInstruction(ctx context.Context, sig program.Signature, summary string, existing []*Candidate, tip string, n int) (string, error) {
	prompt := buildProposalPrompt(sig, summary, existing, tip)
	name := fmt.Sprintf("proposal_%d", n)
	o.debugManager.LogPrompt(name, prompt.String())

	response, err := o.promptModel.GenerateWithSchema(ctx, prompt, proposalSchemaName, proposalSchema)
	if err != nil {
		return "", fmt.Errorf("failed to propose instruction %d: %w", n, err)
	}
	o.debugManager.LogResponse(name, response)

	return parseProposal(response), nil
}

func buildProposalPrompt(sig program.Signature, summary string, existing []*Candidate, tip string) *llm.Prompt {
	var fields strings.Builder
	for _, f := range sig.Inputs {
		fmt.Fprintf(&fields, "- input %s: %s\n", f.Name, f.Description)
	}
	for _, f := range sig.Outputs {
		fmt.Fprintf(&fields, "- output %s: %s\n", f.Name, f.Description)
	}

	var previous strings.Builder
	for _, c := range existing {
		fmt.Fprintf(&previous, "%d. %s\n", c.Index+1, c.Instruction)
	}

	input := fmt.Sprintf(`Propose a new instruction for a language model task.

Task fields:
%s
Dataset summary:
%s

Instructions tried so far:
%s
The new instruction will be scored by how well the task's outputs satisfy a judge. Write an instruction that differs from the ones tried so far.`,
		fields.String(), summary, previous.String())

	opts := []llm.PromptOption{
		llm.WithSystemPrompt("You are an instruction optimizer for large language models. You write task instructions that get the best results from a smaller model."),
		llm.WithOutput(`Respond with a JSON object: {"proposed_instruction": "..."}`),
	}
	if tip != "" {
		opts = append(opts, llm.WithDirectives(tip))
	}
	return llm.NewPrompt(input, opts...)
}

// parseProposal accepts the structured reply, and falls back to the raw
// text when the proposer ignored the schema.
func parseProposal(response string) string {
	var proposal instructionProposal
	if err := json.Unmarshal([]byte(llm.CleanJSONResponse(response)), &proposal); err == nil {
		if err := llm.Validate(proposal); err == nil {
			return strings.TrimSpace(proposal.ProposedInstruction)
		}
		return ""
	}

	text := strings.TrimSpace(response)
	if strings.HasPrefix(text, "{") {
		return ""
	}
	for _, prefix := range []string{"Proposed Instruction:", "Instruction:"} {
		if len(text) >= len(prefix) && strings.EqualFold(text[:len(prefix)], prefix) {
			text = strings.TrimSpace(text[len(prefix):])
		}
	}
	return strings.Trim(text, "\"'` \n")
}

func normalizeInstruction(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// summarizeDataset describes the training set for the proposer without
// spending an LM call.
func summarizeDataset(examples []dataset.Example) string {
	counts := make(map[string]int)
	for _, ex := range examples {
		counts[ex.Persona]++
	}
	personas := make([]string, 0, len(counts))
	for p := range counts {
		personas = append(personas, p)
	}
	sort.Strings(personas)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d examples. Personas: %s.\n", len(examples), strings.Join(personas, ", "))
	sb.WriteString("Sample queries:\n")
	for i, ex := range examples {
		if i == maxSummaryQueries {
			break
		}
		fmt.Fprintf(&sb, "- %s\n", ex.Query)
	}
	sb.WriteString("Each raw_answer is a short factual paragraph; responses must keep every fact while speaking as the persona.")
	return sb.String()
}
