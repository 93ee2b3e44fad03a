// Package memory is an in-memory implementation of the storage
// interfaces, used in tests and storage-free runs.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// Store keeps everything behind one mutex. Good enough for tests; the
// SQLite store is the production path.
type Store struct {
	mu      sync.Mutex
	cases   map[string]storage.CaseSnapshot
	plans   map[string]domain.Plan
	periods map[periodKey]*domain.UsagePeriod
	traces  map[string]bool
	audits  []*domain.AuditEntry
}

type periodKey struct {
	userID      string
	periodStart time.Time
}

var _ storage.Store = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		cases:   make(map[string]storage.CaseSnapshot),
		plans:   make(map[string]domain.Plan),
		periods: make(map[periodKey]*domain.UsagePeriod),
		traces:  make(map[string]bool),
	}
}

func (s *Store) FetchCaseSnapshot(ctx context.Context, caseID string) (*storage.CaseSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, ok := s.cases[caseID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *Store) GetUserPlan(ctx context.Context, userID string) (*domain.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[userID]
	if !ok {
		return nil, nil
	}
	return &plan, nil
}

func (s *Store) GetPeriodUsage(ctx context.Context, userID string, periodStart time.Time) (*domain.UsagePeriod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.periods[periodKey{userID, periodStart}]; ok {
		copied := *p
		return &copied, nil
	}
	return &domain.UsagePeriod{UserID: userID, PeriodStart: periodStart}, nil
}

func (s *Store) RecordUsage(ctx context.Context, userID, traceID string, intent domain.Intent, credits float64, tokens int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.traces[traceID] {
		return nil // replayed trace, absorb
	}
	s.traces[traceID] = true

	key := periodKey{userID, storage.PeriodStart(time.Now())}
	p, ok := s.periods[key]
	if !ok {
		p = &domain.UsagePeriod{UserID: userID, PeriodStart: key.periodStart}
		s.periods[key] = p
	}
	p.CreditsUsed += credits
	p.TokensUsed += tokens
	return nil
}

func (s *Store) SaveAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.audits = append(s.audits, entry)
	return nil
}

// AuditEntries returns a snapshot of the recorded audit entries.
func (s *Store) AuditEntries() []*domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.AuditEntry, len(s.audits))
	copy(out, s.audits)
	return out
}

// PutCase seeds a case snapshot.
func (s *Store) PutCase(caseID string, snap storage.CaseSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cases[caseID] = snap
}

// PutPlan seeds a user plan.
func (s *Store) PutPlan(userID string, plan domain.Plan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[userID] = plan
}

func (s *Store) Close() error {
	return nil
}

