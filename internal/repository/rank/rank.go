// Package rank holds the similarity ordering shared by the vector index backends.
package rank

import (
	"math"
	"sort"

	"github.com/kailas-cloud/docsage/internal/domain/chunk"
)

// Entry is a scored hit with its insertion sequence.
type Entry struct {
	Hit chunk.Hit
	Seq int64
}

// Top orders entries by descending score, earlier insertion first on ties,
// and returns at most k hits.
func Top(entries []Entry, k int) []chunk.Hit {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Hit.Score != entries[j].Hit.Score {
			return entries[i].Hit.Score > entries[j].Hit.Score
		}
		return entries[i].Seq < entries[j].Seq
	})
	if k < len(entries) {
		entries = entries[:k]
	}
	out := make([]chunk.Hit, len(entries))
	for i, e := range entries {
		out[i] = e.Hit
	}
	return out
}

// Cosine returns the cosine similarity of a and b, 0 when either is a zero vector.
// Vectors must have equal length.
func Cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
