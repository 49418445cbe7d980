package tagview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tagfs/internal/index"
)

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b []int64
		want []int64
	}{
		{name: "overlap", a: []int64{1, 2, 3, 4}, b: []int64{2, 3, 5}, want: []int64{2, 3}},
		{name: "disjoint", a: []int64{1, 3}, b: []int64{2, 4}, want: []int64{}},
		{name: "empty", a: nil, b: []int64{1}, want: []int64{}},
		{name: "identical", a: []int64{7, 9}, b: []int64{7, 9}, want: []int64{7, 9}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Intersect(tt.a, tt.b))
			require.Equal(t, tt.want, Intersect(tt.b, tt.a))
		})
	}
}

func TestRankByPopularity(t *testing.T) {
	ranked := RankByPopularity([]Ranked{
		{Tag: index.Tag{ID: 3, Name: "c"}, Count: 1},
		{Tag: index.Tag{ID: 2, Name: "b"}, Count: 5},
		{Tag: index.Tag{ID: 1, Name: "a"}, Count: 1},
	})

	names := make([]string, len(ranked))
	for i, r := range ranked {
		names[i] = r.Tag.Name
	}
	require.Equal(t, []string{"b", "a", "c"}, names)
}
