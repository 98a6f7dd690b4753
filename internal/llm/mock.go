package llm

import "context"

// MockClient permite tests sin llamar a un LLM real.
type MockClient struct {
	Response   string
	Embedding  []float32
	Err        error
	LastSystem string
	LastInput  []ChatMessage
}

func (m *MockClient) Generate(_ context.Context, system string, history []ChatMessage) (string, error) {
	m.LastSystem = system
	m.LastInput = history
	return m.Response, m.Err
}

func (m *MockClient) Embed(_ context.Context, _ string) ([]float32, error) {
	return m.Embedding, m.Err
}
