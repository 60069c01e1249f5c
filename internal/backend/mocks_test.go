package backend_test

import (
	"context"
	"sync"

	"optimizer.app/relay/common/llm"
)

type mockLLMClient struct {
	mu        sync.Mutex
	chatFn    func(ctx context.Context, req llm.Request) (*llm.Response, error)
	requests  []llm.Request
	callCount int
}

func (m *mockLLMClient) Chat(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	m.callCount++
	m.requests = append(m.requests, req)
	m.mu.Unlock()

	if m.chatFn != nil {
		return m.chatFn(ctx, req)
	}
	return &llm.Response{Content: "ok"}, nil
}

func (m *mockLLMClient) Model() string {
	return "mock-model"
}

func (m *mockLLMClient) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}
