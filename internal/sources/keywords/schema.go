package keywords

// RulesFile is the top-level structure of the keywords YAML file.
//
// Example:
//
//	rules:
//	  - keyword: decurso
//	    status: Decurso
//	  - keyword: arquivado
//	    status: Baixa
type RulesFile struct {
	Rules []RuleSpec `yaml:"rules"`
}

// RuleSpec is one keyword -> status mapping as written in the file.
// Order in the file is the matching priority.
type RuleSpec struct {
	Keyword string `yaml:"keyword"`
	Status  string `yaml:"status"`
}
