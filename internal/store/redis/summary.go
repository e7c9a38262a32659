package redis

import (
	"context"
	"time"

	"github.com/andamento/andamento/internal/domain"
)

// Summaries returns the notes stored for a case. The bool reports
// whether the case exists at all, so callers can distinguish "unknown
// case" from "no notes yet".
func (s *Store) Summaries(ctx context.Context, number string) ([]domain.Summary, bool, error) {
	c, err := s.FindByNumber(ctx, number)
	if err != nil {
		return nil, false, err
	}
	if c == nil {
		return nil, false, nil
	}
	if c.Summaries == nil {
		return []domain.Summary{}, true, nil
	}
	return c.Summaries, true, nil
}

// AppendSummary adds one note to a case. Appending to an unknown number
// creates a bare in-progress document, matching the upsert behavior of
// the rest of the store.
func (s *Store) AppendSummary(ctx context.Context, number string, summary domain.Summary) error {
	c, err := s.FindByNumber(ctx, number)
	if err != nil {
		return err
	}

	now := time.Now()
	if c == nil {
		c = &domain.Case{
			Number:    number,
			Status:    domain.StatusInProgress,
			CreatedAt: now,
		}
	}
	c.Summaries = append(c.Summaries, summary)
	c.UpdatedAt = now
	return s.save(ctx, c)
}
