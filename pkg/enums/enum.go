package enums

import (
	"fmt"
	"slices"
	"strings"
)

// closedSet is the full value list of one string enum.
type closedSet[T ~string] struct {
	kind   string
	values []T
}

func enumOf[T ~string](kind string, values ...T) closedSet[T] {
	return closedSet[T]{kind: kind, values: values}
}

func (s closedSet[T]) has(v T) bool {
	return slices.Contains(s.values, v)
}

// parse accepts raw with surrounding whitespace removed.
func (s closedSet[T]) parse(raw string) (T, error) {
	v := T(strings.TrimSpace(raw))
	if s.has(v) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", s.kind, raw)
}
