package redis

const (
	// KeyPrefixCase is the prefix for per-case document keys.
	KeyPrefixCase = "andamento:case:"
	// KeyAllCases is the set of all tracked case numbers.
	KeyAllCases = "andamento:cases:all"
)

// CaseKey returns the Redis key for a case document.
func CaseKey(number string) string {
	return KeyPrefixCase + number
}

// AllCasesKey returns the key of the membership set.
func AllCasesKey() string {
	return KeyAllCases
}
