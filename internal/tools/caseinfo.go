package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

type caseInfoInput struct {
	CaseID string `json:"case_id"`
	Field  string `json:"field,omitempty"` // status|deadlines|tasks|notes|all
}

// NewCaseInfoTool builds the queryCaseInfo deterministic tool over the
// given case store.
func NewCaseInfoTool(store storage.CaseStore) *DeterministicTool {
	return &DeterministicTool{
		ToolName:    "queryCaseInfo",
		Description: "Consulta datos estructurados de un expediente: estado, vencimientos, tareas o notas.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"case_id": map[string]any{"type": "string", "description": "Identificador del expediente"},
				"field":   map[string]any{"type": "string", "enum": []string{"status", "deadlines", "tasks", "notes", "all"}},
			},
			"required": []string{"case_id"},
		},
		Run: func(ctx context.Context, input json.RawMessage) (any, error) {
			var in caseInfoInput
			if err := json.Unmarshal(input, &in); err != nil {
				return nil, fmt.Errorf("invalid queryCaseInfo input: %w", err)
			}
			if in.CaseID == "" {
				return nil, fmt.Errorf("case_id is required")
			}

			snap, err := store.FetchCaseSnapshot(ctx, in.CaseID)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch case: %w", err)
			}
			if snap == nil {
				return map[string]any{"found": false}, nil
			}

			switch in.Field {
			case "status":
				return map[string]any{"found": true, "status": snap.Status}, nil
			case "deadlines":
				return map[string]any{"found": true, "deadlines": snap.Deadlines}, nil
			case "tasks":
				return map[string]any{"found": true, "tasks": snap.Tasks}, nil
			case "notes":
				return map[string]any{"found": true, "notes": snap.Notes}, nil
			case "", "all":
				return map[string]any{"found": true, "case": snap}, nil
			default:
				return nil, fmt.Errorf("unknown field %q", in.Field)
			}
		},
	}
}
