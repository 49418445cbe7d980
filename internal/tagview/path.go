package tagview

import (
	"fmt"
	"sort"
	"strings"

	"tagfs/internal/apperr"
)

// TagPath is the ordered list of tag names named by a mount path. The
// directory it denotes depends only on the set of names, not their order.
type TagPath []string

// ParsePath splits a mount path into tag segments. Empty segments are
// dropped, so "/", "" and "//" all yield the root.
func ParsePath(p string) TagPath {
	segments := strings.Split(p, "/")
	out := make(TagPath, 0, len(segments))
	for _, s := range segments {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// IsRoot reports whether the path names the mount root.
func (tp TagPath) IsRoot() bool {
	return len(tp) == 0
}

// Unique fails with apperr.ErrInvalidPath on the first repeated segment.
func (tp TagPath) Unique() error {
	seen := make(map[string]struct{}, len(tp))
	for _, tag := range tp {
		if _, dup := seen[tag]; dup {
			return fmt.Errorf("tag %q repeats in %s: %w", tag, tp, apperr.ErrInvalidPath)
		}
		seen[tag] = struct{}{}
	}
	return nil
}

// Split returns the parent path and the last segment. The root has no leaf.
func (tp TagPath) Split() (TagPath, string) {
	if tp.IsRoot() {
		return tp, ""
	}
	return tp[:len(tp)-1], tp[len(tp)-1]
}

// Canonical returns the sorted form of the path. Two paths with the same
// canonical form name the same directory.
func (tp TagPath) Canonical() TagPath {
	out := make(TagPath, len(tp))
	copy(out, tp)
	sort.Strings(out)
	return out
}

// Equivalent reports whether both paths name the same set of tags.
func (tp TagPath) Equivalent(other TagPath) bool {
	a, b := tp.Canonical(), other.Canonical()
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (tp TagPath) String() string {
	return "/" + strings.Join(tp, "/")
}
