package llm

import (
	"context"
	"errors"
	"sync"

	"github.com/invopop/jsonschema"

	"github.com/teilomillet/personatune/providers"
	"github.com/teilomillet/personatune/utils"
)

// ErrMockExhausted is returned once a MockLLM without a handler has no
// scripted replies left.
var ErrMockExhausted = errors.New("mock responses exhausted")

// MockLLM is an in-memory LLM for tests. Replies come from Handler when set,
// otherwise from the Responses queue in order.
type MockLLM struct {
	mu        sync.Mutex
	model     string
	logger    utils.Logger
	responses []string
	prompts   []*Prompt
	schemas   []string
	usage     providers.Usage

	// Handler, when set, computes the reply for every call.
	Handler func(prompt *Prompt) (string, error)
}

// NewMockLLM returns a mock that answers with responses in order.
func NewMockLLM(model string, responses ...string) *MockLLM {
	return &MockLLM{
		model:     model,
		logger:    utils.NewNopLogger(),
		responses: responses,
	}
}

// NewMockLLMFunc returns a mock that answers through handler.
func NewMockLLMFunc(model string, handler func(prompt *Prompt) (string, error)) *MockLLM {
	m := NewMockLLM(model)
	m.Handler = handler
	return m
}

func (m *MockLLM) Generate(ctx context.Context, prompt *Prompt) (string, error) {
	return m.GenerateWithSchema(ctx, prompt, "", nil)
}

func (m *MockLLM) GenerateWithSchema(ctx context.Context, prompt *Prompt, name string, schema *jsonschema.Schema) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.schemas = append(m.schemas, name)
	handler := m.Handler
	m.mu.Unlock()

	var (
		reply string
		err   error
	)
	if handler != nil {
		reply, err = handler(prompt)
	} else {
		reply, err = m.next()
	}
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.usage.Add(providers.NewUsage(int64(estimateTokens(prompt.String())), 0, int64(estimateTokens(reply))))
	m.mu.Unlock()
	return reply, nil
}

func (m *MockLLM) next() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.responses) == 0 {
		return "", ErrMockExhausted
	}
	reply := m.responses[0]
	m.responses = m.responses[1:]
	return reply, nil
}

func (m *MockLLM) Model() string { return m.model }

func (m *MockLLM) GetLogger() utils.Logger { return m.logger }

func (m *MockLLM) Usage() providers.Usage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.usage
}

// Prompts returns every prompt received so far.
func (m *MockLLM) Prompts() []*Prompt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Prompt(nil), m.prompts...)
}

// SchemaNames returns the schema name passed with each call, empty for
// plain Generate calls.
func (m *MockLLM) SchemaNames() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.schemas...)
}

// Calls returns the number of calls received.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

var _ LLM = (*MockLLM)(nil)
