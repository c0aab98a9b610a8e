package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/teilomillet/personatune/config"
	"github.com/teilomillet/personatune/dataset"
	"github.com/teilomillet/personatune/llm"
	"github.com/teilomillet/personatune/optimizer"
)

const ruleWidth = 60

func printBaseline(w io.Writer, ex dataset.Example, s sampleResult) {
	fmt.Fprintln(w, "=== Baseline sample ===")
	fmt.Fprintf(w, "Persona: %s\nResponse: %s\n\n", ex.Persona, s.Response)
	fmt.Fprintf(w, "Judge score: %.1f\n\n", s.Score)
}

func printSearchHeader(w io.Writer, trials int) {
	fmt.Fprintf(w, "=== Running instruction search (instruction-only, %d trials) ===\n", trials)
}

// progressPrinter writes one line per trial.
func progressPrinter(w io.Writer, total int) optimizer.TrialCallback {
	return func(t optimizer.Trial, c *optimizer.Candidate) {
		fmt.Fprintf(w, "Trial %2d/%d  candidate %-2d %-9s score %.2f  best %.2f\n",
			t.Number, total, c.Index, t.Kind, t.Score, t.BestScore)
	}
}

func printInstruction(w io.Writer, instruction string) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\nOPTIMIZED INSTRUCTION:\n%s\n%s\n%s\n", rule, rule, instruction, rule)
}

func printOptimized(w io.Writer, s sampleResult) {
	fmt.Fprintln(w, "\n=== Optimized sample (same input) ===")
	fmt.Fprintf(w, "Response: %s\n", s.Response)
	fmt.Fprintf(w, "Judge score: %.1f\n", s.Score)
}

// roleUsage pairs a backend with its role for the usage table.
type roleUsage struct {
	role config.Role
	lm   interface {
		llm.LLM
		Calls() int
	}
}

func printUsage(w io.Writer, roles []roleUsage, parseFailures int64) {
	fmt.Fprintln(w, "\nToken usage:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ROLE\tMODEL\tCALLS\tINPUT\tOUTPUT\tTOTAL")
	for _, r := range roles {
		u := r.lm.Usage()
		total := fmt.Sprintf("%d", u.TotalTokens)
		if u.Estimated {
			total += " (est.)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", r.role, r.lm.Model(), r.lm.Calls(), u.InputTokens, u.OutputTokens, total)
	}
	tw.Flush()
	if parseFailures > 0 {
		fmt.Fprintf(w, "Judge replies scored 0 for not being a rating: %d\n", parseFailures)
	}
}
