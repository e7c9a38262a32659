// Package engine runs batches of case updates through the
// reconciliation algorithm: fetch the stored case, decide the new
// status, the sticky attention flag and the history delta, then upsert.
package engine

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/logger"
)

// DefaultWorkers bounds cross-number batch concurrency.
const DefaultWorkers = 4

// Gateway is the slice of the persistence layer the engine needs. The
// read-before-write pair must be called under the per-number lock, which
// the engine guarantees.
type Gateway interface {
	FindByNumber(ctx context.Context, number string) (*domain.Case, error)
	Upsert(ctx context.Context, number string, fields domain.UpsertFields, entry *domain.HistoryEntry) error
}

// Engine reconciles update batches. Different case numbers run
// concurrently on a bounded pool; updates to the same number, within a
// batch or across overlapping batches, are serialized by a process-wide
// keyed mutex.
type Engine struct {
	store      Gateway
	classifier *domain.Classifier
	logger     logger.Logger
	locks      *keyedMutex
	workers    int
	now        func() time.Time
}

// New creates an engine. workers <= 0 falls back to DefaultWorkers.
func New(store Gateway, classifier *domain.Classifier, log logger.Logger, workers int) *Engine {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Engine{
		store:      store,
		classifier: classifier,
		logger:     log,
		locks:      newKeyedMutex(),
		workers:    workers,
		now:        time.Now,
	}
}

// indexedUpdate keeps the batch position for error reporting.
type indexedUpdate struct {
	index  int
	update domain.RawUpdate
}

// ProcessBatch reconciles each update in arrival order per case number.
//
// Batch semantics are at-least-once and non-atomic: a validation error
// (missing number) or a storage error aborts the remaining batch, but
// entries already applied stay applied. There is no rollback and no
// internal retry; callers may resubmit the whole batch.
func (e *Engine) ProcessBatch(ctx context.Context, updates []domain.RawUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	groups := groupByNumber(updates)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, group := range groups {
		group := group
		g.Go(func() error {
			return e.processGroup(gctx, group)
		})
	}
	return g.Wait()
}

// processGroup applies all updates for one case number sequentially,
// holding that number's lock for the whole group so the read-then-decide
// -then-write sequence never interleaves with another writer.
func (e *Engine) processGroup(ctx context.Context, group []indexedUpdate) error {
	key := domain.NormalizeCaseNumber(group[0].update.Number)
	e.locks.Lock(key)
	defer e.locks.Unlock(key)

	for _, iu := range group {
		if err := ctx.Err(); err != nil {
			// Another group already failed; stop submitting entries.
			return err
		}
		if err := e.processOne(ctx, iu); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) processOne(ctx context.Context, iu indexedUpdate) error {
	number := domain.NormalizeCaseNumber(iu.update.Number)
	if number == "" {
		return &domain.ValidationError{
			Index:  iu.index,
			Number: iu.update.Number,
			Reason: domain.ErrMissingNumber.Error(),
		}
	}

	existing, err := e.store.FindByNumber(ctx, number)
	if err != nil {
		return fmt.Errorf("failed to read case %s: %w", number, err)
	}

	r, err := domain.Reconcile(existing, iu.update, e.now(), e.classifier)
	if err != nil {
		return &domain.ValidationError{Index: iu.index, Number: iu.update.Number, Reason: err.Error()}
	}

	if err := e.store.Upsert(ctx, r.Number, r.Fields, r.Entry); err != nil {
		return fmt.Errorf("failed to upsert case %s: %w", r.Number, err)
	}

	e.logger.Info("case reconciled",
		logger.String("numero", r.Number),
		logger.String("status", string(r.Fields.Status)),
		logger.Bool("novo_despacho", r.Fields.NeedsAttention),
		logger.Bool("historico", r.Entry != nil))
	return nil
}

// groupByNumber buckets updates by normalized number, preserving both
// arrival order inside each bucket and first-seen order across buckets.
// Entries with an empty number keep their own bucket so the validation
// error surfaces with the right index.
func groupByNumber(updates []domain.RawUpdate) [][]indexedUpdate {
	byNumber := make(map[string]int)
	var groups [][]indexedUpdate

	for i, u := range updates {
		key := domain.NormalizeCaseNumber(u.Number)
		pos, ok := byNumber[key]
		if !ok {
			pos = len(groups)
			byNumber[key] = pos
			groups = append(groups, nil)
		}
		groups[pos] = append(groups[pos], indexedUpdate{index: i, update: u})
	}
	return groups
}
