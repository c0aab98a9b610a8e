package program

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/teilomillet/personatune/llm"
)

const systemTemplate = `{{.Instructions}}

Your input fields are:
{{range $i, $f := .Inputs}}{{inc $i}}. {{$f.Label}}{{if $f.Description}}: {{$f.Description}}{{end}}
{{end}}
Your output fields are:
{{range $i, $f := .Outputs}}{{inc $i}}. {{$f.Label}}{{if $f.Description}}: {{$f.Description}}{{end}}
{{end}}
Write each output field on its own line, starting with its name followed by a colon.`

var systemTmpl = template.Must(template.New("system").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).Parse(systemTemplate))

func renderSystem(sig Signature) (string, error) {
	var buf bytes.Buffer
	if err := systemTmpl.Execute(&buf, sig); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func renderFields(fields []Field, values map[string]string) string {
	var sb strings.Builder
	for i, f := range fields {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(f.Label())
		sb.WriteString(": ")
		sb.WriteString(values[f.Name])
	}
	return sb.String()
}

func outputHint(sig Signature) string {
	parts := make([]string, 0, len(sig.Outputs))
	for _, f := range sig.Outputs {
		parts = append(parts, f.Label()+":")
	}
	return "Respond with " + strings.Join(parts, ", ")
}

// BuildPrompt renders the chat prompt for one call. Demos become prior
// user/assistant turns.
func BuildPrompt(sig Signature, demos []Demo, inputs map[string]string) (*llm.Prompt, error) {
	system, err := renderSystem(sig)
	if err != nil {
		return nil, err
	}
	opts := []llm.PromptOption{llm.WithSystemPrompt(system), llm.WithOutput(outputHint(sig))}
	for _, d := range demos {
		opts = append(opts,
			llm.WithMessage("user", renderFields(sig.Inputs, d)),
			llm.WithMessage("assistant", renderFields(sig.Outputs, d)),
		)
	}
	return llm.NewPrompt(renderFields(sig.Inputs, inputs), opts...), nil
}
