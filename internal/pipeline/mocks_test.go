package pipeline_test

import (
	"context"
	"sync"
)

type mockAdapter struct {
	id          string
	displayName string

	generateFn func(ctx context.Context, instruction string) (string, error)
	explainFn  func(ctx context.Context, instruction string) (string, error)

	mu                   sync.Mutex
	generateInstructions []string
	explainInstructions  []string
}

func newMockAdapter(id string) *mockAdapter {
	return &mockAdapter{id: id, displayName: "Model " + id}
}

func (m *mockAdapter) ID() string          { return m.id }
func (m *mockAdapter) DisplayName() string { return m.displayName }
func (m *mockAdapter) Model() string       { return m.id + "-model" }

func (m *mockAdapter) Generate(ctx context.Context, instruction string) (string, error) {
	m.mu.Lock()
	m.generateInstructions = append(m.generateInstructions, instruction)
	m.mu.Unlock()

	if m.generateFn != nil {
		return m.generateFn(ctx, instruction)
	}
	return "code from " + m.id, nil
}

func (m *mockAdapter) Explain(ctx context.Context, instruction string) (string, error) {
	m.mu.Lock()
	m.explainInstructions = append(m.explainInstructions, instruction)
	m.mu.Unlock()

	if m.explainFn != nil {
		return m.explainFn(ctx, instruction)
	}
	return "explanation from " + m.id, nil
}

func (m *mockAdapter) generateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.generateInstructions)
}

func (m *mockAdapter) explainCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.explainInstructions)
}
