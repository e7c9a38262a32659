// Package keywords loads the optional classifier rule file. Without a
// file the classifier runs on its built-in defaults; with one, deployers
// can extend the movement-text keyword table without a rebuild.
package keywords

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/andamento/andamento/internal/domain"
)

// Loader reads and validates a keyword rules file.
type Loader struct {
	filePath string
}

// NewLoader creates a loader for the given file path.
func NewLoader(filePath string) *Loader {
	return &Loader{filePath: filePath}
}

// Load parses the rules file into classifier rules, preserving file
// order as matching priority. An empty rules list is rejected so a
// half-written file cannot wipe the classifier.
func (l *Loader) Load() ([]domain.Rule, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keywords file: %w", err)
	}

	var file RulesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse keywords yaml: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("keywords file %s contains no rules", l.filePath)
	}

	rules := make([]domain.Rule, 0, len(file.Rules))
	for i, spec := range file.Rules {
		if spec.Keyword == "" {
			return nil, fmt.Errorf("rule %d: keyword is empty", i)
		}
		status := domain.Status(spec.Status)
		if !domain.KnownStatus(status) {
			return nil, fmt.Errorf("rule %d: unknown status %q", i, spec.Status)
		}
		rules = append(rules, domain.Rule{Keyword: spec.Keyword, Status: status})
	}
	return rules, nil
}
