package tokens

import (
	"testing"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

func TestCountRequest_OpenAIExact(t *testing.T) {
	c := NewCounter()

	req := &domain.StreamRequest{
		Model:        "gpt-4-turbo",
		SystemPrompt: "Eres un asistente legal.",
		Messages: []domain.Message{
			{Role: "user", Content: "¿Cuántos días tengo para apelar?"},
		},
	}

	count, exact := c.CountRequest(req)
	if !exact {
		t.Error("gpt-4-turbo must be counted exactly")
	}
	if count <= 0 {
		t.Errorf("expected a positive count, got %d", count)
	}

	// Adding a message must never decrease the count.
	req.Messages = append(req.Messages, domain.Message{Role: "assistant", Content: "Depende del tipo de resolución."})
	longer, _ := c.CountRequest(req)
	if longer <= count {
		t.Errorf("count did not grow: %d then %d", count, longer)
	}
}

func TestCountRequest_AnthropicEstimated(t *testing.T) {
	c := NewCounter()

	req := &domain.StreamRequest{
		Model:        "claude-3-5-sonnet-20241022",
		SystemPrompt: "Eres un asistente legal.",
		Messages: []domain.Message{
			{Role: "user", Content: "Analiza la viabilidad de la demanda."},
		},
	}

	count, exact := c.CountRequest(req)
	if exact {
		t.Error("claude models must be estimated")
	}
	if count <= 0 {
		t.Errorf("expected a positive estimate, got %d", count)
	}
}

func TestCountRequest_ToolsAddTokens(t *testing.T) {
	c := NewCounter()

	req := &domain.StreamRequest{
		Model:    "gpt-4o-mini",
		Messages: []domain.Message{{Role: "user", Content: "hola"}},
	}
	bare, _ := c.CountRequest(req)

	req.Tools = []domain.ToolDefinition{{
		Name:        "calculateDeadline",
		Description: "Calcula la fecha límite.",
		Parameters:  map[string]any{"type": "object"},
	}}
	withTools, _ := c.CountRequest(req)

	if withTools <= bare {
		t.Errorf("tool definitions must add tokens: %d then %d", bare, withTools)
	}
}
