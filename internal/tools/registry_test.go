package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/lexia-ai/lexia-gateway/internal/storage"
	"github.com/lexia-ai/lexia-gateway/internal/storage/memory"
)

func toolNames(ts []Tool) map[string]bool {
	names := make(map[string]bool, len(ts))
	for _, t := range ts {
		names[t.Name()] = true
	}
	return names
}

func TestForIntent_DeterministicAlwaysIncluded(t *testing.T) {
	reg := NewRegistry(memory.New())

	for _, allowed := range [][]string{nil, {}, {"summarizeDocument"}} {
		names := toolNames(reg.ForIntent(allowed))
		if !names["calculateDeadline"] {
			t.Errorf("ForIntent(%v) missing calculateDeadline", allowed)
		}
		if !names["queryCaseInfo"] {
			t.Errorf("ForIntent(%v) missing queryCaseInfo", allowed)
		}
	}
}

func TestForIntent_SemanticRequiresAllowList(t *testing.T) {
	reg := NewRegistry(memory.New())

	names := toolNames(reg.ForIntent(nil))
	for _, semantic := range []string{"summarizeDocument", "draftDocument", "proceduralChecklist"} {
		if names[semantic] {
			t.Errorf("empty allow-list must not expose %s", semantic)
		}
	}

	names = toolNames(reg.ForIntent([]string{"draftDocument", "calculateDeadline"}))
	if !names["draftDocument"] {
		t.Error("allow-listed draftDocument not exposed")
	}
	if names["summarizeDocument"] {
		t.Error("summarizeDocument exposed without being allow-listed")
	}
}

func TestRegistry_Lookup(t *testing.T) {
	reg := NewRegistry(memory.New())

	tool, ok := reg.Lookup("summarizeDocument")
	if !ok {
		t.Fatal("summarizeDocument not found")
	}
	st, ok := tool.(*SemanticTool)
	if !ok {
		t.Fatalf("expected *SemanticTool, got %T", tool)
	}
	if len(st.Stages) == 0 || st.Stages[len(st.Stages)-1] != "ready" {
		t.Errorf("expected stages ending in ready, got %v", st.Stages)
	}
	if err := st.Validate(json.RawMessage(`{}`)); err == nil {
		t.Error("expected validation error for missing document_text")
	}
	if err := st.Validate(json.RawMessage(`{"document_text": "contrato"}`)); err != nil {
		t.Errorf("unexpected validation error: %v", err)
	}

	if _, ok := reg.Lookup("nope"); ok {
		t.Error("Lookup returned a tool for an unknown name")
	}
}

func TestCaseInfoTool(t *testing.T) {
	store := memory.New()
	store.PutCase("case-1", storage.CaseSnapshot{Status: "abierto"})

	tool := NewCaseInfoTool(store)

	out, err := tool.Run(context.Background(), json.RawMessage(`{"case_id": "case-1", "field": "status"}`))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	m := out.(map[string]any)
	if m["found"] != true || m["status"] != "abierto" {
		t.Errorf("unexpected result %v", m)
	}

	out, err = tool.Run(context.Background(), json.RawMessage(`{"case_id": "missing"}`))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if out.(map[string]any)["found"] != false {
		t.Errorf("expected found=false for missing case, got %v", out)
	}
}
