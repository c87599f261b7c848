// Package registry holds named providers of a capability, such as build
// system or VCS resolvers, and selects among them by priority.
//
// A Registry is created by the caller and passed to the code that needs it;
// there is no process-wide instance.
package registry

import (
	"sort"

	cmap "github.com/orcaman/concurrent-map/v2"

	"github.com/Iron-Ham/idecore/internal/errors"
)

// Entry is a registered provider.
type Entry[T any] struct {
	Name     string
	Priority int // lower runs first
	Value    T
}

// Registry is a concurrency-safe set of named providers.
type Registry[T any] struct {
	kind    string
	entries cmap.ConcurrentMap[string, Entry[T]]
}

// New creates an empty registry. kind names the capability in errors,
// e.g. "build system".
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{
		kind:    kind,
		entries: cmap.New[Entry[T]](),
	}
}

// Register adds or replaces the provider named name.
func (r *Registry[T]) Register(name string, priority int, value T) {
	r.entries.Set(name, Entry[T]{Name: name, Priority: priority, Value: value})
}

// RegisterIfAbsent adds the provider unless the name is taken.
// It reports whether the provider was added.
func (r *Registry[T]) RegisterIfAbsent(name string, priority int, value T) bool {
	return r.entries.SetIfAbsent(name, Entry[T]{Name: name, Priority: priority, Value: value})
}

// Unregister removes the provider named name.
func (r *Registry[T]) Unregister(name string) {
	r.entries.Remove(name)
}

// Get returns the provider named name, or an error matching
// errors.ErrNotFound.
func (r *Registry[T]) Get(name string) (T, error) {
	e, ok := r.entries.Get(name)
	if !ok {
		var zero T
		return zero, errors.NewNotFoundError(r.kind, name)
	}
	return e.Value, nil
}

// Has reports whether a provider named name is registered.
func (r *Registry[T]) Has(name string) bool {
	return r.entries.Has(name)
}

// Len returns the number of providers.
func (r *Registry[T]) Len() int {
	return r.entries.Count()
}

// Entries returns all providers ordered by priority, then name.
func (r *Registry[T]) Entries() []Entry[T] {
	items := r.entries.Items()
	out := make([]Entry[T], 0, len(items))
	for _, e := range items {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Values returns the provider values in Entries order.
func (r *Registry[T]) Values() []T {
	entries := r.Entries()
	out := make([]T, len(entries))
	for i, e := range entries {
		out[i] = e.Value
	}
	return out
}
