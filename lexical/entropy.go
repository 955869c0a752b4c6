package lexical

import "math"

// Entropy returns the Shannon entropy of s in bits per character.
// The empty string has entropy 0.
func Entropy(s string) float64 {
	if s == "" {
		return 0
	}

	counts := make(map[rune]int)
	total := 0
	for _, r := range s {
		counts[r]++
		total++
	}

	h := 0.0
	n := float64(total)
	for _, c := range counts {
		p := float64(c) / n
		h -= p * math.Log2(p)
	}
	return h
}
