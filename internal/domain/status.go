package domain

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripAccents removes combining marks after canonical decomposition, so
// "trânsito" matches the keyword "transito".
var stripAccents = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// RemoveAccents returns s without diacritics.
func RemoveAccents(s string) string {
	result, _, err := transform.String(stripAccents, s)
	if err != nil {
		return s
	}
	return result
}

// Rule maps a keyword stem to the status it implies. Matching is
// case- and accent-insensitive containment.
type Rule struct {
	Keyword string
	Status  Status
}

// DefaultRules is the built-in priority-ordered keyword table. First
// match wins.
func DefaultRules() []Rule {
	return []Rule{
		{Keyword: "decurso", Status: StatusDecurso},
		{Keyword: "baixa", Status: StatusBaixa},
		{Keyword: "transito", Status: StatusTransito},
		{Keyword: "origem", Status: StatusOrigem},
	}
}

// Classifier derives a lifecycle status from free-text movement
// descriptions. The rule set can be swapped at runtime (keywords file
// reload), so access is guarded.
type Classifier struct {
	mu    sync.RWMutex
	rules []Rule
}

// NewClassifier builds a classifier with the built-in rules.
func NewClassifier() *Classifier {
	return &Classifier{rules: DefaultRules()}
}

// SetRules replaces the rule table. Keywords are normalized the same way
// movement text is at classification time.
func (c *Classifier) SetRules(rules []Rule) {
	normalized := make([]Rule, 0, len(rules))
	for _, r := range rules {
		normalized = append(normalized, Rule{
			Keyword: RemoveAccents(strings.ToLower(r.Keyword)),
			Status:  r.Status,
		})
	}
	c.mu.Lock()
	c.rules = normalized
	c.mu.Unlock()
}

// Rules returns a copy of the active rule table.
func (c *Classifier) Rules() []Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify maps movement text to a status. No keyword match (or empty
// text) yields StatusInProgress; whether that default actually replaces
// a previously stored status is the reconciler's call.
func (c *Classifier) Classify(movementText string) Status {
	text := RemoveAccents(strings.ToLower(movementText))

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, r := range c.rules {
		if strings.Contains(text, r.Keyword) {
			return r.Status
		}
	}
	return StatusInProgress
}
