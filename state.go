package statebus

import (
	"hash/maphash"

	"github.com/benbjohnson/immutable"
)

var nameSeed = maphash.MakeSeed()

type nameHasher struct{}

func (nameHasher) Hash(key string) uint32 { return uint32(maphash.String(nameSeed, key)) }
func (nameHasher) Equal(a, b string) bool { return a == b }

// State is an immutable snapshot of the whole store: one value per feature.
// Snapshots share every feature value a dispatch did not change.
type State struct {
	m *immutable.Map[string, any]
}

func emptyState() State {
	return State{m: immutable.NewMap[string, any](nameHasher{})}
}

// Lookup returns the raw value of the named feature.
func (s State) Lookup(name string) (any, bool) {
	if s.m == nil {
		return nil, false
	}
	return s.m.Get(name)
}

// Len returns the number of features in the snapshot.
func (s State) Len() int {
	if s.m == nil {
		return 0
	}
	return s.m.Len()
}

// Same reports whether both snapshots are the same version.
func (s State) Same(other State) bool {
	return s.m == other.m
}

func (s State) with(name string, v any) State {
	if s.m == nil {
		return emptyState().with(name, v)
	}
	return State{m: s.m.Set(name, v)}
}

// Get reads the typed value of feature f out of a snapshot.
// A snapshot taken before f was registered yields f's initial state.
func Get[S any](s State, f *Feature[S]) S {
	v, ok := s.Lookup(f.name)
	if !ok {
		return f.initial
	}
	out, _ := v.(S)
	return out
}
