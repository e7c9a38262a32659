package domain

import (
	"errors"
	"sort"
	"time"
)

// AttentionThreshold is the minimum difference percentage between the
// previous and the incoming order text that flips NeedsAttention on.
const AttentionThreshold = 5.0

// ErrMissingNumber marks an update whose case number is empty after
// normalization. The engine turns it into a ValidationError with the
// batch index attached.
var ErrMissingNumber = errors.New("case number is required")

// UpsertFields are the scalar fields the gateway merges into the stored
// document, last-write-wins.
type UpsertFields struct {
	Status         Status
	NeedsAttention bool

	// Assignee nil means keep the stored value.
	Assignee *string

	// LastSearchedAt is non-nil only for manual lookups.
	LastSearchedAt *time.Time
}

// Reconciled is the outcome of reconciling one update against the stored
// case: the normalized number, the merged scalar fields and, when the
// update carried any observed text, one history entry to append.
type Reconciled struct {
	Number string
	Fields UpsertFields
	Entry  *HistoryEntry
}

// Reconcile decides how one incoming update changes the stored case.
// It is pure: no I/O, no clock reads beyond the supplied now. The caller
// must hold the per-number critical section so that the existing snapshot
// it fetched is still current when the result is written back.
func Reconcile(existing *Case, in RawUpdate, now time.Time, classifier *Classifier) (Reconciled, error) {
	number := NormalizeCaseNumber(in.Number)
	if number == "" {
		return Reconciled{}, ErrMissingNumber
	}

	movementLabel := NormalizeText(in.MovementLabel)
	movementText := NormalizeText(in.MovementText)
	orderLabel := NormalizeText(in.OrderLabel)
	orderText := NormalizeText(in.OrderText)
	sourceLink := NormalizeText(in.SourceLink)

	previousText := previousOrderText(existing)
	previousFlag := existing != nil && existing.NeedsAttention

	needsAttention := previousFlag
	if orderText != "" && !previousFlag {
		if DifferencePercentage(previousText, orderText) >= AttentionThreshold {
			needsAttention = true
		}
	}

	status := StatusInProgress
	switch {
	case movementText != "":
		status = classifier.Classify(movementText)
	case existing != nil:
		// No movement text in this batch: keep the stored status instead
		// of resetting to in-progress.
		status = existing.Status
	}

	var entry *HistoryEntry
	candidate := HistoryEntry{
		Timestamp:     now,
		MovementLabel: movementLabel,
		MovementText:  movementText,
		OrderLabel:    orderLabel,
		OrderText:     orderText,
		SourceLink:    sourceLink,
	}
	// A poll that observed nothing must not pollute history.
	if !candidate.Empty() {
		entry = &candidate
	}

	fields := UpsertFields{
		Status:         status,
		NeedsAttention: needsAttention,
		Assignee:       in.Assignee,
	}
	if in.Manual {
		searchedAt := now
		fields.LastSearchedAt = &searchedAt
	}

	return Reconciled{Number: number, Fields: fields, Entry: entry}, nil
}

// previousOrderText resolves the last known order text: the legacy
// top-level field when present, otherwise the most recent history entry
// carrying a non-empty order text. A stored record with neither yields
// "" (soft inconsistency, not an error).
func previousOrderText(existing *Case) string {
	if existing == nil {
		return ""
	}
	if existing.LastOrderText != "" {
		return NormalizeText(existing.LastOrderText)
	}
	if len(existing.History) == 0 {
		return ""
	}

	sorted := make([]HistoryEntry, len(existing.History))
	copy(sorted, existing.History)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	for _, e := range sorted {
		if e.OrderText != "" {
			return NormalizeText(e.OrderText)
		}
	}
	return ""
}
