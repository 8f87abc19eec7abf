// Package ignore decides which directories are pruned from a library walk.
package ignore

import (
	"path/filepath"
	"sort"
	"strings"
)

// Separator splits folder names in the ignored.folders setting.
const Separator = ";"

// Set is an immutable collection of directory base names. The zero value
// ignores nothing.
type Set struct {
	names map[string]struct{}
}

// Parse splits raw on Separator, trims every entry, and drops empty or
// duplicate names. Matching is literal: no globs, no case folding.
func Parse(raw string) Set {
	parts := strings.Split(raw, Separator)
	names := make(map[string]struct{}, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		names[name] = struct{}{}
	}
	return Set{names: names}
}

// New builds a Set from already separated names.
func New(names ...string) Set {
	return Parse(strings.Join(names, Separator))
}

// ShouldSkip reports whether the directory's base name is in the set.
// Full paths are accepted; only the last element is compared.
func (s Set) ShouldSkip(dir string) bool {
	if len(s.names) == 0 {
		return false
	}
	_, ok := s.names[filepath.Base(dir)]
	return ok
}

// Len returns the number of distinct names.
func (s Set) Len() int {
	return len(s.names)
}

// Names returns the members in sorted order.
func (s Set) Names() []string {
	out := make([]string, 0, len(s.names))
	for name := range s.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// String renders the set the way it is configured.
func (s Set) String() string {
	return strings.Join(s.Names(), Separator)
}
