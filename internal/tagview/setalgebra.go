package tagview

import (
	"sort"

	"tagfs/internal/index"
)

// Intersect returns the ids present in both a and b. Both inputs must be
// ascending; the result is ascending too.
func Intersect(a, b []int64) []int64 {
	out := make([]int64, 0, min(len(a), len(b)))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] < b[j]:
			i++
		case a[i] > b[j]:
			j++
		default:
			out = append(out, a[i])
			i++
			j++
		}
	}
	return out
}

// Ranked is a tag with the number of files in a File Set that carry it.
type Ranked struct {
	Tag   index.Tag
	Count int
}

// RankByPopularity orders tags by count descending, ties broken by tag id.
func RankByPopularity(counts []Ranked) []Ranked {
	out := make([]Ranked, len(counts))
	copy(out, counts)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Tag.ID < out[j].Tag.ID
	})
	return out
}
