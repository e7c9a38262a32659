package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/engine"
	"github.com/andamento/andamento/internal/httpserver/deps"
	"github.com/andamento/andamento/internal/logger"
	redisstore "github.com/andamento/andamento/internal/store/redis"
)

// memStore implements deps.CaseStore in memory with the same merge
// semantics as the Redis store.
type memStore struct {
	mu    sync.Mutex
	cases map[string]*domain.Case
	fail  error
}

func newMemStore() *memStore {
	return &memStore{cases: make(map[string]*domain.Case)}
}

func (m *memStore) FindByNumber(_ context.Context, number string) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	c, ok := m.cases[number]
	if !ok {
		return nil, nil
	}
	clone := *c
	return &clone, nil
}

func (m *memStore) Upsert(_ context.Context, number string, fields domain.UpsertFields, entry *domain.HistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	c, ok := m.cases[number]
	if !ok {
		c = &domain.Case{Number: number}
		m.cases[number] = c
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

func (m *memStore) ListAll(_ context.Context) ([]*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}
	out := make([]*domain.Case, 0, len(m.cases))
	for _, c := range m.cases {
		clone := *c
		out = append(out, &clone)
	}
	return out, nil
}

func (m *memStore) ListPendingNumbers(ctx context.Context) ([]string, error) {
	all, err := m.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var numbers []string
	for _, c := range all {
		if c.Status == domain.StatusInProgress {
			numbers = append(numbers, c.Number)
		}
	}
	sort.Strings(numbers)
	return numbers, nil
}

func (m *memStore) DeleteByNumbers(_ context.Context, numbers []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, number := range numbers {
		if _, ok := m.cases[number]; ok {
			delete(m.cases, number)
			n++
		}
	}
	return n, nil
}

func (m *memStore) DeleteHistoryEntries(_ context.Context, refs []redisstore.HistoryRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	modified := make(map[string]bool)
	for _, ref := range refs {
		c, ok := m.cases[ref.Number]
		if !ok {
			continue
		}
		kept := c.History[:0:0]
		for _, e := range c.History {
			if !e.Timestamp.Equal(ref.Timestamp) {
				kept = append(kept, e)
			}
		}
		if len(kept) != len(c.History) {
			c.History = kept
			modified[ref.Number] = true
		}
	}
	return int64(len(modified)), nil
}

func (m *memStore) MarkReviewed(_ context.Context, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[number]
	if !ok {
		return false, nil
	}
	c.NeedsAttention = false
	return true, nil
}

func (m *memStore) Summaries(_ context.Context, number string) ([]domain.Summary, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[number]
	if !ok {
		return nil, false, nil
	}
	if c.Summaries == nil {
		return []domain.Summary{}, true, nil
	}
	return c.Summaries, true, nil
}

func (m *memStore) AppendSummary(_ context.Context, number string, s domain.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[number]
	if !ok {
		c = &domain.Case{Number: number, Status: domain.StatusInProgress}
		m.cases[number] = c
	}
	c.Summaries = append(c.Summaries, s)
	return nil
}

func newTestDeps(store *memStore) deps.Deps {
	log := logger.NewNop()
	return deps.Deps{
		Logger:  log,
		TimeNow: time.Now,
		Store:   store,
		Engine:  engine.New(store, domain.NewClassifier(), log, 1),
	}
}

// router mounts the case routes so chi URL params resolve in tests.
func router(d deps.Deps) http.Handler {
	r := chi.NewRouter()
	r.Route("/processos", func(r chi.Router) {
		r.Get("/", ListCases(d))
		r.Get("/numeros", PendingNumbers(d))
		r.Post("/atualizar", UpdateCases(d))
		r.Post("/excluir-multiplos", DeleteCases(d))
		r.Post("/excluir-historico-multiplos", DeleteHistory(d))
		r.Get("/{numero}/resumos", ListSummaries(d))
		r.Post("/{numero}/resumos", AddSummary(d))
		r.Post("/{numero}/despacho-visto", MarkReviewed(d))
	})
	return r
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr *bytes.Reader
	if body == "" {
		rdr = bytes.NewReader(nil)
	} else {
		rdr = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListCasesAlwaysReturnsArrays(t *testing.T) {
	store := newMemStore()
	store.cases["111"] = &domain.Case{Number: "111", Status: domain.StatusInProgress}

	rec := doJSON(t, router(newTestDeps(store)), http.MethodGet, "/processos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /processos = %d, want 200", rec.Code)
	}

	body := rec.Body.String()
	if !strings.Contains(body, `"historico":[]`) {
		t.Errorf("response lacks empty historico array: %s", body)
	}
	if !strings.Contains(body, `"resumos":[]`) {
		t.Errorf("response lacks empty resumos array: %s", body)
	}
}

func TestPendingNumbers(t *testing.T) {
	store := newMemStore()
	store.cases["1"] = &domain.Case{Number: "1", Status: domain.StatusInProgress}
	store.cases["2"] = &domain.Case{Number: "2", Status: domain.StatusBaixa}
	store.cases["3"] = &domain.Case{Number: "3", Status: domain.StatusInProgress}

	rec := doJSON(t, router(newTestDeps(store)), http.MethodGet, "/processos/numeros", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /processos/numeros = %d, want 200", rec.Code)
	}

	var items []struct {
		Number string `json:"numero"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &items); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(items) != 2 || items[0].Number != "1" || items[1].Number != "3" {
		t.Errorf("numeros = %+v, want [1 3]", items)
	}
}

func TestUpdateCasesBatch(t *testing.T) {
	store := newMemStore()
	h := router(newTestDeps(store))

	rec := doJSON(t, h, http.MethodPost, "/processos/atualizar",
		`{"processos":[{"numero":"500","teor_ultima_movimentacao":"Baixa dos autos","teor_ultimo_despacho":"Despacho um"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /processos/atualizar = %d, body %s", rec.Code, rec.Body.String())
	}

	c := store.cases["500"]
	if c == nil {
		t.Fatal("case 500 not created")
	}
	if c.Status != domain.StatusBaixa {
		t.Errorf("status = %q, want %q", c.Status, domain.StatusBaixa)
	}
	if len(c.History) != 1 {
		t.Errorf("history length = %d, want 1", len(c.History))
	}
}

func TestUpdateCasesSingleObject(t *testing.T) {
	store := newMemStore()
	h := router(newTestDeps(store))

	rec := doJSON(t, h, http.MethodPost, "/processos/atualizar",
		`{"processos":{"numero":"600","manual":true}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("single-object intake = %d, body %s", rec.Code, rec.Body.String())
	}
	if store.cases["600"] == nil {
		t.Fatal("case 600 not created from single-object payload")
	}
}

func TestUpdateCasesValidationError(t *testing.T) {
	store := newMemStore()
	h := router(newTestDeps(store))

	rec := doJSON(t, h, http.MethodPost, "/processos/atualizar",
		`{"processos":[{"numero":"700"},{"numero":"  "}]}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("intake with empty number = %d, want 400", rec.Code)
	}

	var resp struct {
		Index int `json:"indice"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Index != 1 {
		t.Errorf("indice = %d, want 1", resp.Index)
	}
	// Non-atomic batch: the entry before the bad one stays applied.
	if store.cases["700"] == nil {
		t.Error("case 700 should remain applied after batch abort")
	}
}

func TestUpdateCasesBadBody(t *testing.T) {
	h := router(newTestDeps(newMemStore()))

	for _, body := range []string{``, `{}`, `{"processos": 42}`} {
		rec := doJSON(t, h, http.MethodPost, "/processos/atualizar", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q = %d, want 400", body, rec.Code)
		}
	}
}

func TestUpdateCasesStorageError(t *testing.T) {
	store := newMemStore()
	store.fail = fmt.Errorf("redis down")
	h := router(newTestDeps(store))

	rec := doJSON(t, h, http.MethodPost, "/processos/atualizar",
		`{"processos":[{"numero":"1"}]}`)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("intake with storage failure = %d, want 500", rec.Code)
	}
}

func TestDeleteCases(t *testing.T) {
	store := newMemStore()
	store.cases["1"] = &domain.Case{Number: "1"}
	store.cases["2"] = &domain.Case{Number: "2"}
	h := router(newTestDeps(store))

	rec := doJSON(t, h, http.MethodPost, "/processos/excluir-multiplos",
		`{"numeros":["1","2","ghost"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Deleted int64 `json:"deletados"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Deleted != 2 {
		t.Errorf("deletados = %d, want 2", resp.Deleted)
	}

	rec = doJSON(t, h, http.MethodPost, "/processos/excluir-multiplos", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("delete without numeros = %d, want 400", rec.Code)
	}
}

func TestDeleteHistory(t *testing.T) {
	ts := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	store.cases["1"] = &domain.Case{
		Number: "1",
		History: []domain.HistoryEntry{
			{Timestamp: ts, OrderText: "a"},
			{Timestamp: ts.Add(time.Hour), OrderText: "b"},
		},
	}
	h := router(newTestDeps(store))

	body := fmt.Sprintf(`{"entradas":[{"numero":"1","data":%q}]}`, ts.Format(time.RFC3339))
	rec := doJSON(t, h, http.MethodPost, "/processos/excluir-historico-multiplos", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete history = %d, body %s", rec.Code, rec.Body.String())
	}
	if got := len(store.cases["1"].History); got != 1 {
		t.Errorf("remaining history = %d, want 1", got)
	}
}

func TestSummariesRoundTrip(t *testing.T) {
	store := newMemStore()
	store.cases["1"] = &domain.Case{Number: "1"}
	h := router(newTestDeps(store))

	rec := doJSON(t, h, http.MethodGet, "/processos/ghost/resumos", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET resumos for unknown case = %d, want 404", rec.Code)
	}

	rec = doJSON(t, h, http.MethodGet, "/processos/1/resumos", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("GET resumos = %d %q, want 200 []", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, http.MethodPost, "/processos/1/resumos",
		`{"texto":"Decisão favorável","assistente":"ana"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST resumos = %d", rec.Code)
	}
	if got := len(store.cases["1"].Summaries); got != 1 {
		t.Errorf("summaries stored = %d, want 1", got)
	}
}

func TestMarkReviewedClearsEngineRaisedFlag(t *testing.T) {
	store := newMemStore()
	d := newTestDeps(store)
	h := router(d)

	// The engine raises the flag...
	rec := doJSON(t, h, http.MethodPost, "/processos/atualizar",
		`{"processos":[{"numero":"1","teor_ultimo_despacho":"Despacho novo"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("intake = %d", rec.Code)
	}
	if !store.cases["1"].NeedsAttention {
		t.Fatal("NeedsAttention = false after new order, want true")
	}

	// ...and only the review endpoint clears it.
	rec = doJSON(t, h, http.MethodPost, "/processos/1/despacho-visto", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("despacho-visto = %d", rec.Code)
	}
	if store.cases["1"].NeedsAttention {
		t.Error("NeedsAttention = true after review, want false")
	}

	rec = doJSON(t, h, http.MethodPost, "/processos/ghost/despacho-visto", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("despacho-visto for unknown case = %d, want 404", rec.Code)
	}
}

func TestReloadTrigger(t *testing.T) {
	d := newTestDeps(newMemStore())
	d.ReloadTrigger = make(chan struct{}, 1)
	h := Reload(d)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if rec.Code != http.StatusAccepted {
		t.Errorf("first reload = %d, want 202", rec.Code)
	}

	// Channel full: a second trigger is rejected until consumed.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/reload", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("second reload = %d, want 429", rec.Code)
	}
}
