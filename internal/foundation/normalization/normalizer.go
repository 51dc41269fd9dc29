// Package normalization maps loosely written configuration values onto typed
// enums.
package normalization

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Normalizer maps case-insensitive, space-trimmed strings to enum values.
type Normalizer[T comparable] struct {
	name   string
	values map[string]T
	keys   []string
}

// New builds a normalizer for the named enum from its accepted spellings.
func New[T comparable](name string, values map[string]T) *Normalizer[T] {
	n := &Normalizer[T]{name: name, values: make(map[string]T, len(values))}
	for k, v := range values {
		key := clean(k)
		n.values[key] = v
		n.keys = append(n.keys, key)
	}
	sort.Strings(n.keys)
	return n
}

// Lookup returns the enum value for raw and whether it was recognised.
func (n *Normalizer[T]) Lookup(raw string) (T, bool) {
	v, ok := n.values[clean(raw)]
	return v, ok
}

// Parse returns the enum value for raw or an error listing the valid options.
func (n *Normalizer[T]) Parse(raw string) (T, error) {
	if v, ok := n.Lookup(raw); ok {
		return v, nil
	}
	var zero T
	return zero, fmt.Errorf("invalid %s %q (allowed: %s)", n.name, raw, strings.Join(n.keys, "|"))
}

// ParseOr returns fallback for empty input and otherwise behaves like Parse.
func (n *Normalizer[T]) ParseOr(raw string, fallback T) (T, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return n.Parse(raw)
}

// Valid reports whether v is one of the enum values.
func (n *Normalizer[T]) Valid(v T) bool {
	for _, known := range n.values {
		if known == v {
			return true
		}
	}
	return false
}

// Keys returns the accepted spellings in sorted order.
func (n *Normalizer[T]) Keys() []string {
	return slices.Clone(n.keys)
}

func clean(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
