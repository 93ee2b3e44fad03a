// Package storage defines the persistence interfaces the engine depends
// on. Implementations live in subpackages (sqlite, memory).
package storage

import (
	"context"
	"time"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
)

// CaseSnapshot is the raw composite query result for one case. Bounding
// to the prompt-size limits happens in the enrichment layer, not here.
type CaseSnapshot struct {
	Status      string
	Description string
	CompanyName string
	Deadlines   []domain.Deadline
	Tasks       []domain.Task
	Notes       []domain.Note
}

// CaseStore retrieves case data for context enrichment and the
// deterministic case-info tool.
type CaseStore interface {
	// FetchCaseSnapshot returns the case plus related deadlines, tasks
	// and notes, or (nil, nil) when the case does not exist.
	FetchCaseSnapshot(ctx context.Context, caseID string) (*CaseSnapshot, error)
}

// UsageStore tracks per-user monthly consumption.
//
// RecordUsage MUST be idempotent by traceID: replaying a trace leaves the
// period totals unchanged. Implementations are also responsible for
// making concurrent increments atomic; the engine never locks around
// them.
type UsageStore interface {
	GetUserPlan(ctx context.Context, userID string) (*domain.Plan, error)
	GetPeriodUsage(ctx context.Context, userID string, periodStart time.Time) (*domain.UsagePeriod, error)
	RecordUsage(ctx context.Context, userID, traceID string, intent domain.Intent, credits float64, tokens int) error
}

// PeriodStart truncates t to the first calendar day of its month, UTC.
// All stores and the quota layer agree on this boundary.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AuditStore persists append-only audit entries.
type AuditStore interface {
	SaveAuditEntry(ctx context.Context, entry *domain.AuditEntry) error
}

// Store is the full persistence surface the service wires at startup.
type Store interface {
	CaseStore
	UsageStore
	AuditStore
	Close() error
}
