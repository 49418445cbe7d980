package tagview

import (
	"testing"

	"github.com/stretchr/testify/require"

	"tagfs/internal/apperr"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		input string
		want  TagPath
	}{
		{input: "/", want: TagPath{}},
		{input: "", want: TagPath{}},
		{input: "//", want: TagPath{}},
		{input: "/red", want: TagPath{"red"}},
		{input: "/red/square/", want: TagPath{"red", "square"}},
		{input: "red//square", want: TagPath{"red", "square"}},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			require.Equal(t, tt.want, ParsePath(tt.input))
		})
	}
}

func TestUnique(t *testing.T) {
	require.NoError(t, ParsePath("/a/b/c").Unique())
	require.ErrorIs(t, ParsePath("/a/a").Unique(), apperr.ErrInvalidPath)
	require.ErrorIs(t, ParsePath("/a/b/a").Unique(), apperr.ErrInvalidPath)
}

func TestCanonical(t *testing.T) {
	a := ParsePath("/square/red")
	b := ParsePath("/red/square")
	require.Equal(t, TagPath{"red", "square"}, a.Canonical())
	require.True(t, a.Equivalent(b))
	require.False(t, a.Equivalent(ParsePath("/red")))
	require.Equal(t, "/square/red", a.String(), "canonical form leaves the original untouched")
}

func TestSplit(t *testing.T) {
	parent, leaf := ParsePath("/red/square/photo.jpg").Split()
	require.Equal(t, TagPath{"red", "square"}, parent)
	require.Equal(t, "photo.jpg", leaf)

	parent, leaf = ParsePath("/").Split()
	require.True(t, parent.IsRoot())
	require.Empty(t, leaf)
}
