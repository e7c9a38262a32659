package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/logger"
)

// fakeGateway mirrors the merge semantics of the Redis store: scalar
// fields last-write-wins, history append-only, assignee kept unless a
// pointer is supplied.
type fakeGateway struct {
	mu      sync.Mutex
	cases   map[string]*domain.Case
	findErr error
	saveErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{cases: make(map[string]*domain.Case)}
}

func (f *fakeGateway) FindByNumber(_ context.Context, number string) (*domain.Case, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	c, ok := f.cases[number]
	if !ok {
		return nil, nil
	}
	clone := *c
	clone.History = append([]domain.HistoryEntry(nil), c.History...)
	return &clone, nil
}

func (f *fakeGateway) Upsert(_ context.Context, number string, fields domain.UpsertFields, entry *domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	c, ok := f.cases[number]
	if !ok {
		c = &domain.Case{Number: number}
		f.cases[number] = c
	}
	c.Status = fields.Status
	c.NeedsAttention = fields.NeedsAttention
	if fields.Assignee != nil {
		c.Assignee = *fields.Assignee
	}
	if fields.LastSearchedAt != nil {
		c.LastSearchedAt = fields.LastSearchedAt
	}
	if entry != nil {
		c.History = append(c.History, *entry)
	}
	return nil
}

func (f *fakeGateway) get(number string) *domain.Case {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cases[number]
}

func newTestEngine(store Gateway, workers int) *Engine {
	return New(store, domain.NewClassifier(), logger.NewNop(), workers)
}

func TestProcessBatchCreatesAndUpdates(t *testing.T) {
	store := newFakeGateway()
	e := newTestEngine(store, 2)

	err := e.ProcessBatch(context.Background(), []domain.RawUpdate{
		{Number: "100", MovementText: "Baixa dos autos", OrderText: "Despacho um"},
		{Number: "200", MovementText: "Despacho proferido"},
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	c := store.get("100")
	if c == nil {
		t.Fatal("case 100 not created")
	}
	if c.Status != domain.StatusBaixa {
		t.Errorf("case 100 status = %q, want %q", c.Status, domain.StatusBaixa)
	}
	if !c.NeedsAttention {
		t.Error("case 100 NeedsAttention = false, want true (first order text)")
	}
	if len(c.History) != 1 {
		t.Errorf("case 100 history length = %d, want 1", len(c.History))
	}

	if c := store.get("200"); c == nil || c.Status != domain.StatusInProgress {
		t.Errorf("case 200 = %+v, want in-progress case", c)
	}
}

func TestProcessBatchSameNumberIsSerialized(t *testing.T) {
	store := newFakeGateway()
	e := newTestEngine(store, 4)

	// Both entries target one number. The second must observe the first
	// entry's write: same order text, so the flag flips exactly once and
	// two history entries land in arrival order.
	err := e.ProcessBatch(context.Background(), []domain.RawUpdate{
		{Number: "300", OrderText: "Vista ao MPF"},
		{Number: "300", OrderText: "Vista ao MPF"},
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	c := store.get("300")
	if c == nil {
		t.Fatal("case 300 not created")
	}
	if !c.NeedsAttention {
		t.Error("NeedsAttention = false, want true")
	}
	if len(c.History) != 2 {
		t.Errorf("history length = %d, want 2", len(c.History))
	}
}

func TestProcessBatchValidationAbortsRemaining(t *testing.T) {
	store := newFakeGateway()
	// Single worker makes the partial-application order deterministic.
	e := newTestEngine(store, 1)

	err := e.ProcessBatch(context.Background(), []domain.RawUpdate{
		{Number: "400", MovementText: "Decurso de prazo"},
		{Number: "   "},
		{Number: "500", MovementText: "Baixa"},
	})

	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("ProcessBatch() error = %v, want ValidationError", err)
	}
	if verr.Index != 1 {
		t.Errorf("ValidationError.Index = %d, want 1", verr.Index)
	}

	// Entry before the bad one stays applied; the batch is not rolled
	// back. Entries after it never run.
	if store.get("400") == nil {
		t.Error("case 400 should remain applied after batch abort")
	}
	if store.get("500") != nil {
		t.Error("case 500 should not have been processed")
	}
}

func TestProcessBatchStorageErrorPropagates(t *testing.T) {
	store := newFakeGateway()
	store.findErr = fmt.Errorf("connection refused")
	e := newTestEngine(store, 2)

	err := e.ProcessBatch(context.Background(), []domain.RawUpdate{{Number: "600"}})
	if err == nil {
		t.Fatal("ProcessBatch() = nil, want storage error")
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		t.Error("storage failure must not surface as a validation error")
	}
}

func TestProcessBatchConcurrentNumbers(t *testing.T) {
	store := newFakeGateway()
	e := newTestEngine(store, 8)

	var updates []domain.RawUpdate
	for i := 0; i < 50; i++ {
		updates = append(updates, domain.RawUpdate{
			Number:    fmt.Sprintf("case-%d", i),
			OrderText: "Despacho inicial",
		})
	}

	if err := e.ProcessBatch(context.Background(), updates); err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}
	for i := 0; i < 50; i++ {
		if store.get(fmt.Sprintf("case-%d", i)) == nil {
			t.Fatalf("case-%d missing after batch", i)
		}
	}
}

func TestProcessBatchManualLookupStampsSearchTime(t *testing.T) {
	store := newFakeGateway()
	e := newTestEngine(store, 1)
	fixed := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	e.now = func() time.Time { return fixed }

	err := e.ProcessBatch(context.Background(), []domain.RawUpdate{
		{Number: "700", Manual: true},
	})
	if err != nil {
		t.Fatalf("ProcessBatch() error = %v", err)
	}

	c := store.get("700")
	if c == nil {
		t.Fatal("case 700 not created")
	}
	if c.LastSearchedAt == nil || !c.LastSearchedAt.Equal(fixed) {
		t.Errorf("LastSearchedAt = %v, want %v", c.LastSearchedAt, fixed)
	}
	if len(c.History) != 0 {
		t.Errorf("history length = %d, want 0 for textless manual lookup", len(c.History))
	}
}
