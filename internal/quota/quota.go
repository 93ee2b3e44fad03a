// Package quota enforces per-user monthly credit allowances. Credits are
// an abstraction over model cost: heavier intents burn more of the
// allowance than chat. Enforcement happens before any provider call;
// recording happens after the stream completes and is idempotent by
// trace, so a retried request is never billed twice.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// DefaultPlan applies to users with no stored subscription.
var DefaultPlan = domain.Plan{Slug: "free", CreditsPerMonth: 50}

// creditCosts maps each intent to its credit price. Intents missing from
// the table cost defaultCreditCost.
var creditCosts = map[domain.Intent]float64{
	domain.IntentGeneralChat:      0.5,
	domain.IntentProceduralQuery:  0.5,
	domain.IntentCaseQuery:        1,
	domain.IntentDocumentSummary:  1.5,
	domain.IntentDocumentDrafting: 2,
	domain.IntentLegalAnalysis:    3,
}

const defaultCreditCost = 1.0

// CreditCost returns the price of one request for the given intent.
func CreditCost(intent domain.Intent) float64 {
	if cost, ok := creditCosts[intent]; ok {
		return cost
	}
	return defaultCreditCost
}

// Manager checks and records credit consumption.
type Manager struct {
	store  storage.UsageStore
	logger *slog.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewManager creates a quota manager over the given usage store.
func NewManager(store storage.UsageStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger, now: time.Now}
}

// CheckCredits reports whether the user can afford one request of the
// given intent this month. A store failure denies the request: quota is
// an enforcement point, not best effort.
func (m *Manager) CheckCredits(ctx context.Context, userID string, intent domain.Intent) (domain.CreditCheck, error) {
	plan, err := m.store.GetUserPlan(ctx, userID)
	if err != nil {
		return domain.CreditCheck{}, fmt.Errorf("failed to load plan: %w", err)
	}
	if plan == nil {
		p := DefaultPlan
		plan = &p
	}

	usage, err := m.store.GetPeriodUsage(ctx, userID, storage.PeriodStart(m.now()))
	if err != nil {
		return domain.CreditCheck{}, fmt.Errorf("failed to load period usage: %w", err)
	}

	cost := CreditCost(intent)
	remaining := plan.CreditsPerMonth - usage.CreditsUsed

	check := domain.CreditCheck{
		Allowed:   remaining >= cost,
		Remaining: remaining,
		Limit:     plan.CreditsPerMonth,
	}
	if !check.Allowed {
		m.logger.Info("credit limit reached",
			slog.String("user_id", userID),
			slog.String("plan", plan.Slug),
			slog.Float64("remaining", remaining),
			slog.Float64("cost", cost),
		)
	}
	return check, nil
}

// RecordUsage charges one completed request against the user's current
// period. Replaying the same traceID is a no-op.
func (m *Manager) RecordUsage(ctx context.Context, userID, traceID string, intent domain.Intent, tokens int) error {
	credits := CreditCost(intent)
	if err := m.store.RecordUsage(ctx, userID, traceID, intent, credits, tokens); err != nil {
		return fmt.Errorf("failed to record usage: %w", err)
	}
	return nil
}
