package redis

import (
	"context"
	"time"

	"github.com/andamento/andamento/internal/domain"
)

// HistoryRef identifies one history entry by case number and timestamp.
type HistoryRef struct {
	Number    string
	Timestamp time.Time
}

// DeleteHistoryEntries removes the referenced entries and returns the
// number of documents that were actually modified. Unknown numbers and
// timestamps that match nothing are ignored.
func (s *Store) DeleteHistoryEntries(ctx context.Context, refs []HistoryRef) (int64, error) {
	// Group timestamps per case so each document is rewritten once.
	byNumber := make(map[string][]time.Time)
	for _, ref := range refs {
		byNumber[ref.Number] = append(byNumber[ref.Number], ref.Timestamp)
	}

	var modified int64
	for number, stamps := range byNumber {
		c, err := s.FindByNumber(ctx, number)
		if err != nil {
			return modified, err
		}
		if c == nil {
			continue
		}

		kept := make([]domain.HistoryEntry, 0, len(c.History))
		for _, e := range c.History {
			if !matchesAny(e.Timestamp, stamps) {
				kept = append(kept, e)
			}
		}
		if len(kept) == len(c.History) {
			continue
		}

		c.History = kept
		c.UpdatedAt = time.Now()
		if err := s.save(ctx, c); err != nil {
			return modified, err
		}
		modified++
	}
	return modified, nil
}

func matchesAny(ts time.Time, stamps []time.Time) bool {
	for _, s := range stamps {
		if ts.Equal(s) {
			return true
		}
	}
	return false
}
