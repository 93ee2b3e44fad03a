// Package audit records one append-only entry per completed request.
// Audit is observational: a failed write is logged, never surfaced to
// the caller.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// Recorder persists audit entries.
type Recorder struct {
	store  storage.AuditStore
	logger *slog.Logger
}

// NewRecorder creates a recorder over the given audit store.
func NewRecorder(store storage.AuditStore, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// Record builds and persists the entry for one completed request. The
// decision must be the one actually executed, fallback included.
func (r *Recorder) Record(ctx context.Context, d domain.Decision, userID, caseID string, messageCount, tokensUsed int, started time.Time, toolsInvoked []string) {
	entry := &domain.AuditEntry{
		TraceID:      d.TraceID,
		UserID:       userID,
		Timestamp:    time.Now().UTC(),
		Intent:       d.Classification.Intent,
		Provider:     d.Config.Provider,
		Model:        d.Config.Model,
		CaseID:       caseID,
		MessageCount: messageCount,
		TokensUsed:   tokensUsed,
		DurationMs:   time.Since(started).Milliseconds(),
		ToolsInvoked: toolsInvoked,
	}

	if err := r.store.SaveAuditEntry(ctx, entry); err != nil {
		r.logger.Error("failed to save audit entry",
			slog.String("trace_id", d.TraceID),
			slog.String("error", err.Error()),
		)
	}
}
