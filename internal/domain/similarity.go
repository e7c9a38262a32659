package domain

// EditDistance computes the Levenshtein distance between a and b over
// full rune sequences (no tokenization); substitution, insertion and
// deletion each cost 1.
//
// The DP is O(n*m) which is fine for order texts of a few thousand
// characters. Texts regularly above ~5000 characters would call for a
// banded variant instead.
func EditDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(rb); i++ {
		curr[0] = i
		for j := 1; j <= len(ra); j++ {
			cost := 1
			if rb[i-1] == ra[j-1] {
				cost = 0
			}
			curr[j] = minInt(
				prev[j-1]+cost, // substitution
				curr[j-1]+1,    // insertion
				prev[j]+1,      // deletion
			)
		}
		prev, curr = curr, prev
	}

	return prev[len(ra)]
}

// DifferencePercentage returns how different a and b are, in [0,100],
// as edit distance over the longer length. A missing side means there is
// nothing to compare against, which is treated as maximal difference.
func DifferencePercentage(a, b string) float64 {
	if a == "" || b == "" {
		return 100
	}
	distance := EditDistance(a, b)
	maxLen := len([]rune(a))
	if l := len([]rune(b)); l > maxLen {
		maxLen = l
	}
	return float64(distance) / float64(maxLen) * 100
}

func minInt(vals ...int) int {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
