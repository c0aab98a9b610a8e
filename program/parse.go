package program

import (
	"strings"
)

// ParseOutput splits a reply into the signature's output fields. Each field
// starts at a line beginning with its label (or raw name) and a colon and
// runs until the next field. A signature with a single output accepts an
// unlabelled reply as the whole value.
func ParseOutput(sig Signature, reply string) Prediction {
	pred := make(Prediction, len(sig.Outputs))
	var (
		current string
		buf     []string
	)
	flush := func() {
		if current != "" {
			pred[current] = strings.TrimSpace(strings.Join(buf, "\n"))
		}
	}

	for _, line := range strings.Split(reply, "\n") {
		if name, rest, ok := matchField(sig.Outputs, line); ok {
			flush()
			current, buf = name, []string{rest}
			continue
		}
		if current != "" {
			buf = append(buf, line)
		}
	}
	flush()

	if len(pred) == 0 && len(sig.Outputs) == 1 {
		pred[sig.Outputs[0].Name] = strings.TrimSpace(reply)
	}
	return pred
}

// matchField reports whether line opens one of fields, returning the text
// after the colon.
func matchField(fields []Field, line string) (string, string, bool) {
	trimmed := strings.TrimLeft(strings.TrimSpace(line), "*#> ")
	for _, f := range fields {
		for _, prefix := range []string{f.Label(), f.Name} {
			if len(trimmed) <= len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
				continue
			}
			rest := strings.TrimLeft(trimmed[len(prefix):], "*")
			if strings.HasPrefix(rest, ":") {
				rest = strings.TrimLeft(rest[1:], "* ")
				return f.Name, strings.TrimSpace(rest), true
			}
		}
	}
	return "", "", false
}
