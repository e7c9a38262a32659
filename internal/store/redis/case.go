package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/andamento/andamento/internal/domain"
)

// Store persists case documents in Redis: one JSON document per case
// number plus a membership set of all tracked numbers.
type Store struct {
	client *redis.Client
}

// NewStore creates a new Redis-backed case store.
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// FindByNumber retrieves a case document. A missing case is (nil, nil),
// not an error.
func (s *Store) FindByNumber(ctx context.Context, number string) (*domain.Case, error) {
	data, err := s.client.Get(ctx, CaseKey(number)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get case %s: %w", number, err)
	}

	var c domain.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal case %s: %w", number, err)
	}
	return &c, nil
}

// Upsert merges the scalar fields into the stored document (creating it
// when absent) and appends the history entry when one was produced.
//
// The whole document is rewritten in a single SET, so the field merge and
// the history append land together; there is no interim state where one
// applied without the other. Callers must hold the per-number critical
// section so the read below is still current at write time.
func (s *Store) Upsert(ctx context.Context, number string, fields domain.UpsertFields, entry *domain.HistoryEntry) error {
	existing, err := s.FindByNumber(ctx, number)
	if err != nil {
		return err
	}

	now := time.Now()
	c := existing
	if c == nil {
		c = &domain.Case{
			Number:    number,
			CreatedAt: now,
		}
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
	c.UpdatedAt = now

	return s.save(ctx, c)
}

// save writes the document and registers the number in the membership
// set in one pipeline.
func (s *Store) save(ctx context.Context, c *domain.Case) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal case %s: %w", c.Number, err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, CaseKey(c.Number), data, 0)
	pipe.SAdd(ctx, AllCasesKey(), c.Number)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save case %s: %w", c.Number, err)
	}
	return nil
}

// ListAll retrieves every tracked case. Numbers whose document cannot be
// read are skipped rather than failing the whole listing.
func (s *Store) ListAll(ctx context.Context) ([]*domain.Case, error) {
	numbers, err := s.client.SMembers(ctx, AllCasesKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list case numbers: %w", err)
	}

	cases := make([]*domain.Case, 0, len(numbers))
	for _, number := range numbers {
		c, err := s.FindByNumber(ctx, number)
		if err != nil || c == nil {
			continue
		}
		cases = append(cases, c)
	}
	return cases, nil
}

// ListPendingNumbers returns the numbers of cases still in progress, the
// work queue the external scraper polls.
func (s *Store) ListPendingNumbers(ctx context.Context) ([]string, error) {
	cases, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	numbers := make([]string, 0, len(cases))
	for _, c := range cases {
		if c.Status == domain.StatusInProgress {
			numbers = append(numbers, c.Number)
		}
	}
	return numbers, nil
}

// DeleteByNumbers removes the listed cases and reports how many
// documents actually existed.
func (s *Store) DeleteByNumbers(ctx context.Context, numbers []string) (int64, error) {
	if len(numbers) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	dels := make([]*redis.IntCmd, 0, len(numbers))
	for _, number := range numbers {
		dels = append(dels, pipe.Del(ctx, CaseKey(number)))
		pipe.SRem(ctx, AllCasesKey(), number)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to delete cases: %w", err)
	}

	var deleted int64
	for _, cmd := range dels {
		deleted += cmd.Val()
	}
	return deleted, nil
}

// MarkReviewed is the human-initiated reset of the attention flag, the
// only true -> false writer. The reconciliation engine never clears the
// flag. Returns false when the case does not exist.
func (s *Store) MarkReviewed(ctx context.Context, number string) (bool, error) {
	c, err := s.FindByNumber(ctx, number)
	if err != nil {
		return false, err
	}
	if c == nil {
		return false, nil
	}

	c.NeedsAttention = false
	c.UpdatedAt = time.Now()
	if err := s.save(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}
