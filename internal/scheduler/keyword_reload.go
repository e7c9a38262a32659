// Package scheduler owns the background goroutines: currently the
// periodic reload of the classifier keyword rules file.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/andamento/andamento/internal/domain"
	"github.com/andamento/andamento/internal/logger"
	"github.com/andamento/andamento/internal/sources/keywords"
)

// KeywordReloader periodically reloads the keyword rules file into the
// classifier, and on demand via the manual trigger channel.
type KeywordReloader struct {
	loader        *keywords.Loader
	classifier    *domain.Classifier
	logger        logger.Logger
	interval      time.Duration
	stopCh        chan struct{}
	manualTrigger chan struct{}
}

// NewKeywordReloader creates a reloader for the given rules file.
func NewKeywordReloader(
	rulesFile string,
	classifier *domain.Classifier,
	log logger.Logger,
	interval time.Duration,
	manualTrigger chan struct{},
) *KeywordReloader {
	return &KeywordReloader{
		loader:        keywords.NewLoader(rulesFile),
		classifier:    classifier,
		logger:        log,
		interval:      interval,
		stopCh:        make(chan struct{}),
		manualTrigger: manualTrigger,
	}
}

// Start loads the rules once (failing fast on a broken file) and then
// refreshes them on the interval or on manual trigger.
func (kr *KeywordReloader) Start(ctx context.Context) error {
	if err := kr.Reload(); err != nil {
		return fmt.Errorf("initial keywords load failed: %w", err)
	}

	ticker := time.NewTicker(kr.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := kr.Reload(); err != nil {
					kr.logger.Error("failed to reload keyword rules", logger.Error(err))
				}
			case <-kr.manualTrigger:
				kr.logger.Info("manual keyword reload triggered")
				if err := kr.Reload(); err != nil {
					kr.logger.Error("failed to reload keyword rules", logger.Error(err))
				}
			case <-kr.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return nil
}

// Stop stops the reloader.
func (kr *KeywordReloader) Stop() {
	close(kr.stopCh)
}

// Reload re-reads the rules file and swaps the classifier table. A bad
// file leaves the previous rules in place.
func (kr *KeywordReloader) Reload() error {
	rules, err := kr.loader.Load()
	if err != nil {
		return err
	}

	kr.classifier.SetRules(rules)
	kr.logger.Info("keyword rules loaded", logger.Int("count", len(rules)))
	return nil
}
