// Package casectx turns a lightweight case reference into the bounded
// snapshot used to ground prompts. Grounding is an enhancement: every
// failure path here degrades to "proceed without context".
package casectx

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// Prompt-size bounds. These are part of the contract: the prompt block is
// deterministic regardless of how big the case is.
const (
	MaxDeadlines = 5
	MaxTasks     = 5
	MaxNotes     = 3
)

// Enricher fetches and bounds case snapshots.
type Enricher struct {
	store  storage.CaseStore
	logger *slog.Logger
}

// NewEnricher creates an enricher over the given case store.
func NewEnricher(store storage.CaseStore, logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{store: store, logger: logger}
}

// Enrich returns the bounded case context, or nil when the case cannot be
// found or the store fails. Callers must treat nil as "no grounding", not
// as an error.
func (e *Enricher) Enrich(ctx context.Context, ref *domain.CaseRef) *domain.CaseContext {
	if ref == nil || e.store == nil {
		return nil
	}

	snap, err := e.store.FetchCaseSnapshot(ctx, ref.CaseID)
	if err != nil {
		e.logger.Warn("case enrichment failed, proceeding without grounding",
			slog.String("case_id", ref.CaseID),
			slog.String("error", err.Error()),
		)
		return nil
	}
	if snap == nil {
		e.logger.Debug("case not found, proceeding without grounding",
			slog.String("case_id", ref.CaseID))
		return nil
	}

	return Bound(ref, snap)
}

// Bound applies the deterministic truncation rules to a raw snapshot.
func Bound(ref *domain.CaseRef, snap *storage.CaseSnapshot) *domain.CaseContext {
	cc := &domain.CaseContext{
		CaseRef:     *ref,
		Status:      snap.Status,
		Description: snap.Description,
		CompanyName: snap.CompanyName,
	}

	cc.Deadlines = truncate(snap.Deadlines, MaxDeadlines)

	// Only open work is worth prompt space.
	for _, task := range snap.Tasks {
		if isCompleted(task.Status) {
			continue
		}
		cc.Tasks = append(cc.Tasks, task)
		if len(cc.Tasks) == MaxTasks {
			break
		}
	}

	cc.Notes = truncate(snap.Notes, MaxNotes)

	return cc
}

func truncate[T any](items []T, max int) []T {
	if len(items) <= max {
		return items
	}
	return items[:max]
}

func isCompleted(status string) bool {
	switch strings.ToLower(status) {
	case "completed", "done", "cancelled":
		return true
	}
	return false
}
