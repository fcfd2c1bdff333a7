// Package similarity provides sequence and text similarity primitives used
// by the trace differ and the comparison evaluators.
package similarity

import "strings"

// Levenshtein computes the edit distance between two string sequences.
func Levenshtein(a, b []string) int {
	m, n := len(a), len(b)
	dp := make([]int, n+1)
	for j := 0; j <= n; j++ {
		dp[j] = j
	}

	for i := 1; i <= m; i++ {
		prev := dp[0]
		dp[0] = i
		for j := 1; j <= n; j++ {
			tmp := dp[j]
			if a[i-1] == b[j-1] {
				dp[j] = prev
			} else {
				dp[j] = 1 + min(prev, min(dp[j], dp[j-1]))
			}
			prev = tmp
		}
	}

	return dp[n]
}

// LevenshteinSimilarity normalizes the edit distance into [0, 1].
// Two empty sequences are identical.
func LevenshteinSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	maxLen := max(len(a), len(b))
	return 1.0 - float64(Levenshtein(a, b))/float64(maxLen)
}

// LCSLength computes the length of the longest common subsequence of two
// string sequences.
func LCSLength(a, b []string) int {
	m, n := len(a), len(b)
	dp := make([]int, n+1)

	for i := 1; i <= m; i++ {
		prev := 0
		for j := 1; j <= n; j++ {
			tmp := dp[j]
			if a[i-1] == b[j-1] {
				dp[j] = prev + 1
			} else if dp[j-1] > dp[j] {
				dp[j] = dp[j-1]
			}
			prev = tmp
		}
	}

	return dp[n]
}

// LCSRatio scores a candidate sequence against a reference sequence as the
// LCS length over the reference length. Both empty yields 1.0; an empty
// reference with a non-empty candidate yields 0.0.
func LCSRatio(reference, candidate []string) float64 {
	if len(reference) == 0 {
		if len(candidate) == 0 {
			return 1.0
		}
		return 0.0
	}
	return float64(LCSLength(reference, candidate)) / float64(len(reference))
}

// Jaccard computes the Jaccard similarity of two string sets. Two empty
// sets are identical.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// KeywordOverlap computes word-level Jaccard similarity between two texts,
// lowercased and split on whitespace.
func KeywordOverlap(a, b string) float64 {
	return Jaccard(wordSet(a), wordSet(b))
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
