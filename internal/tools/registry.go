package tools

import (
	"encoding/json"
	"fmt"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// Registry holds the declared tool set. Built once at startup.
type Registry struct {
	deterministic []*DeterministicTool
	semantic      []*SemanticTool
}

// NewRegistry declares every invocable capability. The case store backs
// the structured lookup tool.
func NewRegistry(store storage.CaseStore) *Registry {
	return &Registry{
		deterministic: []*DeterministicTool{
			NewDeadlineTool(),
			NewCaseInfoTool(store),
		},
		semantic: []*SemanticTool{
			{
				ToolName:    "summarizeDocument",
				Description: "Resume un documento legal aportado por el usuario.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"document_text": map[string]any{"type": "string"},
					},
					"required": []string{"document_text"},
				},
				AllowedIntents:    []domain.Intent{domain.IntentDocumentSummary},
				PreferredProvider: "anthropic",
				PreferredModel:    "claude-3-5-haiku-20241022",
				Stages:            []string{"analyzing", "ready"},
				Validate:          requireField("document_text"),
			},
			{
				ToolName:    "draftDocument",
				Description: "Genera el borrador de un documento legal del tipo indicado.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"document_type": map[string]any{"type": "string"},
						"instructions":  map[string]any{"type": "string"},
					},
					"required": []string{"document_type"},
				},
				AllowedIntents:    []domain.Intent{domain.IntentDocumentDrafting},
				PreferredProvider: "anthropic",
				PreferredModel:    "claude-3-5-sonnet-20241022",
				Stages:            []string{"outlining", "drafting", "ready"},
				Validate:          requireField("document_type"),
			},
			{
				ToolName:    "proceduralChecklist",
				Description: "Elabora la lista de pasos procesales para un trámite concreto.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"procedure": map[string]any{"type": "string"},
					},
					"required": []string{"procedure"},
				},
				AllowedIntents: []domain.Intent{domain.IntentLegalAnalysis, domain.IntentProceduralQuery},
				Stages:         []string{"analyzing", "ready"},
				Validate:       requireField("procedure"),
			},
		},
	}
}

// ForIntent returns the tools exposed for an allow-list. Deterministic
// tools are always included: computation-only capabilities carry no
// drift risk, so any tool access grants them all.
func (r *Registry) ForIntent(allowed []string) []Tool {
	allowedSet := make(map[string]bool, len(allowed))
	for _, name := range allowed {
		allowedSet[name] = true
	}

	out := make([]Tool, 0, len(r.deterministic)+len(r.semantic))
	for _, t := range r.deterministic {
		out = append(out, t)
	}
	for _, t := range r.semantic {
		if allowedSet[t.ToolName] {
			out = append(out, t)
		}
	}
	return out
}

// Lookup returns a declared tool by name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	for _, t := range r.deterministic {
		if t.ToolName == name {
			return t, true
		}
	}
	for _, t := range r.semantic {
		if t.ToolName == name {
			return t, true
		}
	}
	return nil, false
}

func requireField(field string) func(json.RawMessage) error {
	return func(input json.RawMessage) error {
		var m map[string]any
		if err := json.Unmarshal(input, &m); err != nil {
			return fmt.Errorf("invalid tool input: %w", err)
		}
		v, ok := m[field]
		if !ok {
			return fmt.Errorf("%s is required", field)
		}
		if s, isStr := v.(string); isStr && s == "" {
			return fmt.Errorf("%s must not be empty", field)
		}
		return nil
	}
}
