// Package sqlite is the SQLite implementation of the storage interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// Store implements storage.Store on SQLite.
type Store struct {
	db *sql.DB
}

var _ storage.Store = (*Store)(nil)

// New opens (and if needed bootstraps) a SQLite database at dbPath.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL; PRAGMA foreign_keys=ON;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS cases (
			id TEXT PRIMARY KEY,
			case_number TEXT NOT NULL,
			title TEXT NOT NULL,
			case_type TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'open',
			description TEXT,
			company_name TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS case_deadlines (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			title TEXT NOT NULL,
			due_at TIMESTAMP NOT NULL,
			FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS case_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			title TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS case_notes (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			case_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (case_id) REFERENCES cases(id) ON DELETE CASCADE
		)`,
		`CREATE TABLE IF NOT EXISTS user_plans (
			user_id TEXT PRIMARY KEY,
			slug TEXT NOT NULL,
			credits_per_month REAL NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS usage_periods (
			user_id TEXT NOT NULL,
			period_start TIMESTAMP NOT NULL,
			credits_used REAL NOT NULL DEFAULT 0,
			tokens_used INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, period_start)
		)`,
		`CREATE TABLE IF NOT EXISTS usage_records (
			trace_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			intent TEXT NOT NULL,
			credits REAL NOT NULL,
			tokens INTEGER NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_entries (
			trace_id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			at TIMESTAMP NOT NULL,
			intent TEXT NOT NULL,
			provider TEXT NOT NULL,
			model TEXT NOT NULL,
			case_id TEXT,
			message_count INTEGER NOT NULL,
			tokens_used INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL,
			tools_invoked TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_case_deadlines_case ON case_deadlines(case_id, due_at)`,
		`CREATE INDEX IF NOT EXISTS idx_case_tasks_case ON case_tasks(case_id)`,
		`CREATE INDEX IF NOT EXISTS idx_case_notes_case ON case_notes(case_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_usage_records_user ON usage_records(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_user ON audit_entries(user_id, at)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}

	return nil
}

// FetchCaseSnapshot loads the case and its related deadlines, tasks and
// notes. Returns (nil, nil) when the case does not exist.
func (s *Store) FetchCaseSnapshot(ctx context.Context, caseID string) (*storage.CaseSnapshot, error) {
	var snap storage.CaseSnapshot
	var description, companyName sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT status, description, company_name FROM cases WHERE id = ?`, caseID).
		Scan(&snap.Status, &description, &companyName)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	snap.Description = description.String
	snap.CompanyName = companyName.String

	rows, err := s.db.QueryContext(ctx,
		`SELECT title, due_at FROM case_deadlines WHERE case_id = ? ORDER BY due_at ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query deadlines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var d domain.Deadline
		if err := rows.Scan(&d.Title, &d.DueAt); err != nil {
			return nil, fmt.Errorf("failed to scan deadline: %w", err)
		}
		snap.Deadlines = append(snap.Deadlines, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	taskRows, err := s.db.QueryContext(ctx,
		`SELECT title, status FROM case_tasks WHERE case_id = ? ORDER BY id ASC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer taskRows.Close()
	for taskRows.Next() {
		var t domain.Task
		if err := taskRows.Scan(&t.Title, &t.Status); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	if err := taskRows.Err(); err != nil {
		return nil, err
	}

	noteRows, err := s.db.QueryContext(ctx,
		`SELECT body, created_at FROM case_notes WHERE case_id = ? ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fmt.Errorf("failed to query notes: %w", err)
	}
	defer noteRows.Close()
	for noteRows.Next() {
		var n domain.Note
		if err := noteRows.Scan(&n.Body, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		snap.Notes = append(snap.Notes, n)
	}
	if err := noteRows.Err(); err != nil {
		return nil, err
	}

	return &snap, nil
}

// GetUserPlan returns the user's plan, or (nil, nil) when none is set.
func (s *Store) GetUserPlan(ctx context.Context, userID string) (*domain.Plan, error) {
	var plan domain.Plan
	err := s.db.QueryRowContext(ctx,
		`SELECT slug, credits_per_month FROM user_plans WHERE user_id = ?`, userID).
		Scan(&plan.Slug, &plan.CreditsPerMonth)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user plan: %w", err)
	}
	return &plan, nil
}

// GetPeriodUsage returns the usage row for a period, zero-valued when the
// user has not consumed anything this period yet.
func (s *Store) GetPeriodUsage(ctx context.Context, userID string, periodStart time.Time) (*domain.UsagePeriod, error) {
	usage := &domain.UsagePeriod{UserID: userID, PeriodStart: periodStart}

	err := s.db.QueryRowContext(ctx,
		`SELECT credits_used, tokens_used FROM usage_periods WHERE user_id = ? AND period_start = ?`,
		userID, periodStart).
		Scan(&usage.CreditsUsed, &usage.TokensUsed)
	if err == sql.ErrNoRows {
		return usage, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get period usage: %w", err)
	}
	return usage, nil
}

// RecordUsage charges credits and tokens to the user's current period.
// Idempotent by traceID: the trace ledger insert and the period increment
// happen in one transaction, so a replayed trace is a no-op and
// concurrent requests cannot lose updates.
func (s *Store) RecordUsage(ctx context.Context, userID, traceID string, intent domain.Intent, credits float64, tokens int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO usage_records (trace_id, user_id, intent, credits, tokens, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(trace_id) DO NOTHING`,
		traceID, userID, string(intent), credits, tokens, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if inserted == 0 {
		// Trace already recorded; absorb the replay.
		return tx.Commit()
	}

	periodStart := storage.PeriodStart(time.Now())
	_, err = tx.ExecContext(ctx,
		`INSERT INTO usage_periods (user_id, period_start, credits_used, tokens_used)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id, period_start) DO UPDATE SET
		 	credits_used = credits_used + excluded.credits_used,
		 	tokens_used = tokens_used + excluded.tokens_used`,
		userID, periodStart, credits, tokens)
	if err != nil {
		return fmt.Errorf("failed to increment period usage: %w", err)
	}

	return tx.Commit()
}

// SaveAuditEntry appends one audit entry.
func (s *Store) SaveAuditEntry(ctx context.Context, entry *domain.AuditEntry) error {
	tools, err := json.Marshal(entry.ToolsInvoked)
	if err != nil {
		return fmt.Errorf("failed to marshal tools: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_entries
		 (trace_id, user_id, at, intent, provider, model, case_id, message_count, tokens_used, duration_ms, tools_invoked)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TraceID, entry.UserID, entry.Timestamp, string(entry.Intent),
		entry.Provider, entry.Model, entry.CaseID,
		entry.MessageCount, entry.TokensUsed, entry.DurationMs, string(tools))
	if err != nil {
		return fmt.Errorf("failed to save audit entry: %w", err)
	}
	return nil
}

// SeedCase inserts a case with its related rows, mainly for fixtures and
// local development.
func (s *Store) SeedCase(ctx context.Context, ref domain.CaseRef, snap storage.CaseSnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO cases (id, case_number, title, case_type, status, description, company_name)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ref.CaseID, ref.CaseNumber, ref.Title, ref.Type,
		snap.Status, snap.Description, snap.CompanyName)
	if err != nil {
		return fmt.Errorf("failed to insert case: %w", err)
	}

	for _, d := range snap.Deadlines {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_deadlines (case_id, title, due_at) VALUES (?, ?, ?)`,
			ref.CaseID, d.Title, d.DueAt); err != nil {
			return fmt.Errorf("failed to insert deadline: %w", err)
		}
	}
	for _, task := range snap.Tasks {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_tasks (case_id, title, status) VALUES (?, ?, ?)`,
			ref.CaseID, task.Title, task.Status); err != nil {
			return fmt.Errorf("failed to insert task: %w", err)
		}
	}
	for _, n := range snap.Notes {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO case_notes (case_id, body, created_at) VALUES (?, ?, ?)`,
			ref.CaseID, n.Body, n.CreatedAt); err != nil {
			return fmt.Errorf("failed to insert note: %w", err)
		}
	}

	return tx.Commit()
}

// SetUserPlan assigns a plan to a user.
func (s *Store) SetUserPlan(ctx context.Context, userID string, plan domain.Plan) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_plans (user_id, slug, credits_per_month) VALUES (?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET slug = excluded.slug, credits_per_month = excluded.credits_per_month`,
		userID, plan.Slug, plan.CreditsPerMonth)
	if err != nil {
		return fmt.Errorf("failed to set user plan: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
