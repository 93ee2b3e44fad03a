// Package tools declares the capabilities the assistant can invoke
// during a stream. Capabilities come in two shapes with different
// contracts: deterministic tools are pure computation and cannot fail
// because a model is down; semantic tools only validate input and stage
// progress markers, leaving the prose to the model.
package tools

import (
	"context"
	"encoding/json"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// Tool is the sealed sum of the two capability variants. Only
// DeterministicTool and SemanticTool implement it.
type Tool interface {
	Name() string
	Definition() domain.ToolDefinition

	isTool()
}

// DeterministicTool executes with no model round-trip. Run must be a
// pure function of its input (plus whatever read-only store it closes
// over).
type DeterministicTool struct {
	ToolName    string
	Description string
	Parameters  any // JSON Schema
	Run         func(ctx context.Context, input json.RawMessage) (any, error)
}

func (t *DeterministicTool) Name() string { return t.ToolName }

func (t *DeterministicTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        t.ToolName,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

func (t *DeterministicTool) isTool() {}

// SemanticTool requires the model to produce the actual content. Its own
// code validates input and yields the stage markers the model consumes
// as intermediate state while composing the final answer.
type SemanticTool struct {
	ToolName          string
	Description       string
	Parameters        any // JSON Schema
	AllowedIntents    []domain.Intent
	PreferredProvider string
	PreferredModel    string
	Stages            []string
	Validate          func(input json.RawMessage) error
}

func (t *SemanticTool) Name() string { return t.ToolName }

func (t *SemanticTool) Definition() domain.ToolDefinition {
	return domain.ToolDefinition{
		Name:        t.ToolName,
		Description: t.Description,
		Parameters:  t.Parameters,
	}
}

func (t *SemanticTool) isTool() {}

// Definitions converts a tool list to the provider-facing shape.
func Definitions(ts []Tool) []domain.ToolDefinition {
	out := make([]domain.ToolDefinition, len(ts))
	for i, t := range ts {
		out[i] = t.Definition()
	}
	return out
}
