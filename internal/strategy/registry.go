package strategy

import "sort"

// Registry holds the configured strategy set, keyed by name. The engine
// looks strategies up by name when routing an event to the subset that
// should evaluate on it; diagnostics walks the sorted list.
type Registry struct {
	byName map[string]Strategy
}

// NewRegistry builds a registry from a list of strategies. Later entries
// with a duplicate Name() overwrite earlier ones.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{byName: make(map[string]Strategy, len(strategies))}
	for _, s := range strategies {
		r.byName[s.Name()] = s
	}
	return r
}

// Get returns the strategy registered under name, if any.
func (r *Registry) Get(name string) (Strategy, bool) {
	s, ok := r.byName[name]
	return s, ok
}

// Subset returns the strategies registered under the given names, in the
// order requested, skipping any name that isn't registered.
func (r *Registry) Subset(names ...string) []Strategy {
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		if s, ok := r.byName[n]; ok {
			out = append(out, s)
		}
	}
	return out
}

// List returns every registered strategy sorted by name, for deterministic
// diagnostics output.
func (r *Registry) List() []Strategy {
	names := make([]string, 0, len(r.byName))
	for n := range r.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	out := make([]Strategy, 0, len(names))
	for _, n := range names {
		out = append(out, r.byName[n])
	}
	return out
}
