// Package hooks is a plain registry of named filters and actions. Hosts
// dispatch their events into it by name.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// DefaultPriority is used by callers that have no ordering needs.
const DefaultPriority = 10

// Filter transforms value. args carry any extra event data.
type Filter func(ctx context.Context, value any, args ...any) (any, error)

// Action reacts to an event.
type Action func(ctx context.Context, args ...any) error

type filterEntry struct {
	priority int
	fn       Filter
}

type actionEntry struct {
	priority int
	fn       Action
}

// Registry holds filters and actions by name.
type Registry struct {
	mu      sync.RWMutex
	filters map[string][]filterEntry
	actions map[string][]actionEntry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		filters: make(map[string][]filterEntry),
		actions: make(map[string][]actionEntry),
	}
}

// AddFilter registers fn under name. Lower priorities run first; equal
// priorities run in registration order.
func (r *Registry) AddFilter(name string, priority int, fn Filter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.filters[name], filterEntry{priority: priority, fn: fn})
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	r.filters[name] = list
}

// AddAction registers fn under name with the same ordering as AddFilter.
func (r *Registry) AddAction(name string, priority int, fn Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := append(r.actions[name], actionEntry{priority: priority, fn: fn})
	sort.SliceStable(list, func(i, j int) bool { return list[i].priority < list[j].priority })
	r.actions[name] = list
}

// HasFilter reports whether any filter is registered under name.
func (r *Registry) HasFilter(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.filters[name]) > 0
}

// HasAction reports whether any action is registered under name.
func (r *Registry) HasAction(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.actions[name]) > 0
}

// ApplyFilters runs every filter registered under name, feeding each the
// previous result. With no filters, value is returned unchanged.
func (r *Registry) ApplyFilters(ctx context.Context, name string, value any, args ...any) (any, error) {
	r.mu.RLock()
	list := append([]filterEntry(nil), r.filters[name]...)
	r.mu.RUnlock()

	for _, e := range list {
		next, err := e.fn(ctx, value, args...)
		if err != nil {
			return value, fmt.Errorf("filter %s: %w", name, err)
		}
		value = next
	}
	return value, nil
}

// DoAction runs every action registered under name. All actions run even
// when one fails; the failures are joined.
func (r *Registry) DoAction(ctx context.Context, name string, args ...any) error {
	r.mu.RLock()
	list := append([]actionEntry(nil), r.actions[name]...)
	r.mu.RUnlock()

	var errs []error
	for _, e := range list {
		if err := e.fn(ctx, args...); err != nil {
			errs = append(errs, fmt.Errorf("action %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Names lists the registered filter and action names, sorted.
func (r *Registry) Names() (filters, actions []string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for name := range r.filters {
		filters = append(filters, name)
	}
	for name := range r.actions {
		actions = append(actions, name)
	}
	sort.Strings(filters)
	sort.Strings(actions)
	return filters, actions
}
