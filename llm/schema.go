package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
)

// SchemaFor reflects v into an inline JSON schema suitable for a
// response_format json_schema request.
func SchemaFor(v any) *jsonschema.Schema {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	return r.Reflect(v)
}

// promptWithSchema appends the schema to the final user turn for backends
// without native structured output.
func promptWithSchema(prompt *Prompt, schema *jsonschema.Schema) (*Prompt, error) {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	withSchema := *prompt
	withSchema.Messages = append([]PromptMessage(nil), prompt.Messages...)
	withSchema.Output = strings.TrimSpace(prompt.Output + "\n\nRespond only with a JSON object matching this schema:\n" + string(schemaJSON))
	return &withSchema, nil
}

// CleanJSONResponse strips markdown fences and any prose around the first
// JSON object in response.
func CleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = strings.TrimSpace(response)

	if strings.HasPrefix(response, "{") {
		return response
	}

	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")

	if start != -1 && end != -1 && end > start {
		return response[start : end+1]
	}

	return response
}
