package domain

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of a tracked case. It is always derived
// from movement text by the Classifier, never set directly by callers.
type Status string

const (
	// StatusInProgress is the initial state of every tracked case.
	StatusInProgress Status = "Em trâmite"
	StatusDecurso    Status = "Decurso"
	StatusBaixa      Status = "Baixa"
	StatusTransito   Status = "Trânsito"
	StatusOrigem     Status = "Origem"
)

// KnownStatus reports whether s is one of the recognized lifecycle states.
func KnownStatus(s Status) bool {
	switch s {
	case StatusInProgress, StatusDecurso, StatusBaixa, StatusTransito, StatusOrigem:
		return true
	}
	return false
}

// Case is the stored document for one tracked legal proceeding.
//
// JSON field names follow the wire format consumed by the external
// scraper and the front end, so they stay in Portuguese.
type Case struct {
	// Number uniquely identifies the case. It is the storage key.
	Number string `json:"numero"`

	Status Status `json:"status"`

	// LastSearchedAt is stamped only by manually triggered lookups.
	// Automated background polls never touch it.
	LastSearchedAt *time.Time `json:"ultima_pesquisa,omitempty"`

	// NeedsAttention is sticky: the reconciliation engine only ever flips
	// it false -> true. Clearing it is a distinct human-initiated
	// operation (store.MarkReviewed).
	NeedsAttention bool `json:"novo_despacho"`

	// LastOrderText is a legacy top-level copy of the most recent order
	// text. Older documents carry it; new writes leave it untouched and
	// the previous order text is derived from History instead.
	LastOrderText string `json:"teor_ultimo_despacho,omitempty"`

	// Assignee is preserved across updates unless an update explicitly
	// supplies a new value (empty string included).
	Assignee string `json:"gap"`

	Summaries []Summary      `json:"resumos"`
	History   []HistoryEntry `json:"historico"`

	CreatedAt time.Time `json:"criado_em"`
	UpdatedAt time.Time `json:"atualizado_em"`
}

// HistoryEntry is one immutable snapshot of observed movement/order data.
// Entries are appended in arrival order and never mutated; the only
// removal path is the explicit delete-by-number+timestamp operation.
type HistoryEntry struct {
	Timestamp     time.Time `json:"data"`
	MovementLabel string    `json:"ultima_movimentacao,omitempty"`
	MovementText  string    `json:"teor_ultima_movimentacao,omitempty"`
	OrderLabel    string    `json:"ultimo_despacho,omitempty"`
	OrderText     string    `json:"teor_ultimo_despacho,omitempty"`
	SourceLink    string    `json:"link,omitempty"`
}

// Empty reports whether the entry carries no observed text at all.
func (e HistoryEntry) Empty() bool {
	return e.MovementLabel == "" && e.MovementText == "" &&
		e.OrderLabel == "" && e.OrderText == ""
}

// Summary is one human/assistant-authored case note. Summaries are
// append-only and managed outside the reconciliation engine.
type Summary struct {
	Text      string    `json:"texto"`
	Author    string    `json:"assistente"`
	Timestamp time.Time `json:"data"`
}

// RawUpdate is one incoming case update as delivered by the intake
// endpoint (scraper batch or manual lookup).
type RawUpdate struct {
	Number        string `json:"numero"`
	MovementLabel string `json:"ultima_movimentacao"`
	MovementText  string `json:"teor_ultima_movimentacao"`
	OrderLabel    string `json:"ultimo_despacho"`
	OrderText     string `json:"teor_ultimo_despacho"`
	SourceLink    string `json:"link"`

	// Manual marks a human-triggered lookup; only those stamp
	// LastSearchedAt.
	Manual bool `json:"manual"`

	// Assignee is a tri-state: nil keeps the stored value, a non-nil
	// pointer (empty string included) overwrites it.
	Assignee *string `json:"gap"`
}

// ValidationError reports a structurally invalid batch entry. It aborts
// the remaining batch; entries already applied are not rolled back.
type ValidationError struct {
	Index  int
	Number string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid update at index %d (numero=%q): %s", e.Index, e.Number, e.Reason)
}
