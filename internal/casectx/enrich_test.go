package casectx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/lexia-ai/lexia-gateway/internal/domain"
	"github.com/lexia-ai/lexia-gateway/internal/storage"
)

// failingCaseStore always errors, simulating an unreachable data store.
type failingCaseStore struct{}

func (failingCaseStore) FetchCaseSnapshot(context.Context, string) (*storage.CaseSnapshot, error) {
	return nil, errors.New("connection refused")
}

// staticCaseStore serves one fixed snapshot.
type staticCaseStore struct {
	snap *storage.CaseSnapshot
}

func (s staticCaseStore) FetchCaseSnapshot(context.Context, string) (*storage.CaseSnapshot, error) {
	return s.snap, nil
}

func testRef() *domain.CaseRef {
	return &domain.CaseRef{CaseID: "case-1", CaseNumber: "EXP-001", Title: "Caso", Type: "mercantil"}
}

func TestEnrich_StoreFailureReturnsNil(t *testing.T) {
	e := NewEnricher(failingCaseStore{}, slog.Default())
	if got := e.Enrich(context.Background(), testRef()); got != nil {
		t.Errorf("Enrich() = %+v, want nil on store failure", got)
	}
}

func TestEnrich_MissingCaseReturnsNil(t *testing.T) {
	e := NewEnricher(staticCaseStore{snap: nil}, slog.Default())
	if got := e.Enrich(context.Background(), testRef()); got != nil {
		t.Errorf("Enrich() = %+v, want nil for missing case", got)
	}
}

func TestEnrich_NilRefReturnsNil(t *testing.T) {
	e := NewEnricher(staticCaseStore{}, slog.Default())
	if got := e.Enrich(context.Background(), nil); got != nil {
		t.Errorf("Enrich(nil) = %+v, want nil", got)
	}
}

func TestBound_Truncation(t *testing.T) {
	snap := &storage.CaseSnapshot{Status: "open"}
	for i := 0; i < 9; i++ {
		snap.Deadlines = append(snap.Deadlines, domain.Deadline{
			Title: fmt.Sprintf("deadline-%d", i),
			DueAt: time.Now().AddDate(0, 0, i),
		})
		snap.Notes = append(snap.Notes, domain.Note{Body: fmt.Sprintf("note-%d", i)})
	}
	// Mix open and completed tasks: completed ones never count.
	for i := 0; i < 12; i++ {
		status := "pending"
		if i%2 == 0 {
			status = "completed"
		}
		snap.Tasks = append(snap.Tasks, domain.Task{Title: fmt.Sprintf("task-%d", i), Status: status})
	}

	cc := Bound(testRef(), snap)

	if len(cc.Deadlines) != MaxDeadlines {
		t.Errorf("deadlines = %d, want %d", len(cc.Deadlines), MaxDeadlines)
	}
	if len(cc.Tasks) != MaxTasks {
		t.Errorf("tasks = %d, want %d", len(cc.Tasks), MaxTasks)
	}
	for _, task := range cc.Tasks {
		if task.Status == "completed" {
			t.Errorf("completed task %q survived bounding", task.Title)
		}
	}
	if len(cc.Notes) != MaxNotes {
		t.Errorf("notes = %d, want %d", len(cc.Notes), MaxNotes)
	}
}

func TestBound_SmallSnapshotUntouched(t *testing.T) {
	snap := &storage.CaseSnapshot{
		Status:    "open",
		Deadlines: []domain.Deadline{{Title: "única"}},
	}

	cc := Bound(testRef(), snap)
	if len(cc.Deadlines) != 1 {
		t.Errorf("deadlines = %d, want 1", len(cc.Deadlines))
	}
	if cc.CaseNumber != "EXP-001" {
		t.Errorf("case identity not carried: %q", cc.CaseNumber)
	}
}
