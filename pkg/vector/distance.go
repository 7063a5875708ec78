package vector

import (
	"cmp"
	"math"
	"slices"
)

// CosineDistance returns 1 - cos(a, b). A zero vector is treated as
// orthogonal to everything, giving a distance of 1. a and b must have the same
// length.
func CosineDistance(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}

	if na == 0 || nb == 0 {
		return 1
	}

	return float32(1 - dot/(math.Sqrt(na)*math.Sqrt(nb)))
}

// RankedResult pairs a result with its insertion position so drivers whose
// backend does not guarantee tie order can restore it.
type RankedResult struct {
	QueryResult
	Position int
}

// SortResults orders results by distance, then by insertion position, and
// truncates to topK.
func SortResults(results []RankedResult, topK int) []QueryResult {
	slices.SortStableFunc(results, func(a, b RankedResult) int {
		if c := cmp.Compare(a.Distance, b.Distance); c != 0 {
			return c
		}
		return cmp.Compare(a.Position, b.Position)
	})

	if topK < len(results) {
		results = results[:topK]
	}

	out := make([]QueryResult, len(results))
	for i, r := range results {
		out[i] = r.QueryResult
	}
	return out
}
