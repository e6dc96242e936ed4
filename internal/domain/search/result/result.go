package result

import (
	"math"
	"sort"
)

// Result is a single search hit.
type Result struct {
	id         int64
	content    string
	similarity float64
}

// New creates a search result.
func New(id int64, content string, similarity float64) Result {
	return Result{id: id, content: content, similarity: similarity}
}

// FromDistance creates a result scored as 1 - distance, clamped to [0, 1].
func FromDistance(id int64, content string, distance float64) Result {
	return New(id, content, Similarity(distance))
}

// Similarity converts a distance into a score in [0, 1]. An undefined (NaN) distance scores 0.
func Similarity(distance float64) float64 {
	if math.IsNaN(distance) {
		return 0
	}
	s := 1 - distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// ID returns the document identifier.
func (r *Result) ID() int64 { return r.id }

// Content returns the document content.
func (r *Result) Content() string { return r.content }

// Similarity returns the relevance score.
func (r *Result) Similarity() float64 { return r.similarity }

// Rank sorts results by similarity descending, ties by id ascending, and keeps at most limit.
func Rank(results []Result, limit int) []Result {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].similarity != results[j].similarity {
			return results[i].similarity > results[j].similarity
		}
		return results[i].id < results[j].id
	})
	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}
