package entity

import (
	"errors"
	"fmt"
	"slices"
)

// ErrOutOfRange is returned by Map when the requested key is not in the collection.
var ErrOutOfRange = errors.New("entity: key out of range")

// Adapter is the stateless operation set for one (key, entity) pair.
// All operations are pure: they take a collection last and return a new one.
// Operations that change nothing return the input collection itself.
type Adapter[K comparable, E any] struct {
	selectID func(E) K
	cfg      *adapterConfig[E]
}

// NewAdapter creates an adapter that keys entities with selectID.
func NewAdapter[K comparable, E any](selectID func(E) K, opts ...Option[E]) *Adapter[K, E] {
	if selectID == nil {
		panic("entity: selectID cannot be nil")
	}

	cfg := &adapterConfig[E]{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Adapter[K, E]{
		selectID: selectID,
		cfg:      cfg,
	}
}

// SelectID returns the key of e.
func (a *Adapter[K, E]) SelectID(e E) K {
	return a.selectID(e)
}

// Empty returns an empty collection.
func (a *Adapter[K, E]) Empty() Collection[K, E] {
	return NewCollection[K, E]()
}

// AddOne inserts e only if its key is absent.
func (a *Adapter[K, E]) AddOne(e E, c Collection[K, E]) Collection[K, E] {
	id := a.selectID(e)
	if c.Has(id) {
		return c
	}
	return c.set(id, e)
}

// AddMany inserts every entity whose key is absent.
// When the batch itself repeats a key, the first occurrence wins.
func (a *Adapter[K, E]) AddMany(es []E, c Collection[K, E]) Collection[K, E] {
	out := c
	for _, e := range es {
		id := a.selectID(e)
		if out.Has(id) {
			continue
		}
		out = out.set(id, e)
	}
	return out
}

// SetAll replaces the whole collection with es.
// When es repeats a key, the last occurrence wins.
func (a *Adapter[K, E]) SetAll(es []E, _ Collection[K, E]) Collection[K, E] {
	out := NewCollection[K, E]()
	for _, e := range es {
		out = out.set(a.selectID(e), e)
	}
	return out
}

// SetOne inserts or overwrites e.
func (a *Adapter[K, E]) SetOne(e E, c Collection[K, E]) Collection[K, E] {
	return c.set(a.selectID(e), e)
}

// SetMany inserts or overwrites every entity in es.
func (a *Adapter[K, E]) SetMany(es []E, c Collection[K, E]) Collection[K, E] {
	if len(es) == 0 {
		return c
	}
	out := c
	for _, e := range es {
		out = out.set(a.selectID(e), e)
	}
	return out
}

// RemoveOne removes id if present.
func (a *Adapter[K, E]) RemoveOne(id K, c Collection[K, E]) Collection[K, E] {
	if !c.Has(id) {
		return c
	}
	return c.delete(id)
}

// RemoveMany removes every present id.
func (a *Adapter[K, E]) RemoveMany(ids []K, c Collection[K, E]) Collection[K, E] {
	out := c
	for _, id := range ids {
		if out.Has(id) {
			out = out.delete(id)
		}
	}
	return out
}

// RemoveWhere removes every entity for which pred holds.
func (a *Adapter[K, E]) RemoveWhere(pred func(E) bool, c Collection[K, E]) Collection[K, E] {
	var doomed []K
	for k, e := range c.All() {
		if pred(e) {
			doomed = append(doomed, k)
		}
	}
	return a.RemoveMany(doomed, c)
}

// RemoveAll empties the collection.
func (a *Adapter[K, E]) RemoveAll(c Collection[K, E]) Collection[K, E] {
	if c.Len() == 0 {
		return c
	}
	return NewCollection[K, E]()
}

// UpdateOne overwrites e only if its key already exists.
func (a *Adapter[K, E]) UpdateOne(e E, c Collection[K, E]) Collection[K, E] {
	id := a.selectID(e)
	if !c.Has(id) {
		return c
	}
	return c.set(id, e)
}

// UpdateMany overwrites every entity whose key already exists.
// Entities with unknown keys are dropped.
func (a *Adapter[K, E]) UpdateMany(es []E, c Collection[K, E]) Collection[K, E] {
	out := c
	for _, e := range es {
		id := a.selectID(e)
		if out.Has(id) {
			out = out.set(id, e)
		}
	}
	return out
}

// UpsertOne inserts or overwrites e.
func (a *Adapter[K, E]) UpsertOne(e E, c Collection[K, E]) Collection[K, E] {
	return a.SetOne(e, c)
}

// UpsertMany inserts or overwrites every entity in es.
func (a *Adapter[K, E]) UpsertMany(es []E, c Collection[K, E]) Collection[K, E] {
	return a.SetMany(es, c)
}

// MapOne replaces the entity at id with fn(entity).
// It fails with ErrOutOfRange if id is absent.
func (a *Adapter[K, E]) MapOne(id K, fn func(E) E, c Collection[K, E]) (Collection[K, E], error) {
	current, ok := c.Get(id)
	if !ok {
		return c, fmt.Errorf("entity: map %v: %w", id, ErrOutOfRange)
	}
	return c.set(id, fn(current)), nil
}

// MapMany applies fn once to every present entity in ids. Absent ids are
// skipped and repeated ids are treated as one.
func (a *Adapter[K, E]) MapMany(ids []K, fn func(E) E, c Collection[K, E]) Collection[K, E] {
	out := c
	seen := make(map[K]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		current, ok := c.Get(id)
		if !ok {
			continue
		}
		out = out.set(id, fn(current))
	}
	return out
}

// Sorted returns the entities ordered by the adapter's comparer.
// Without a comparer the order is unspecified.
func (a *Adapter[K, E]) Sorted(c Collection[K, E]) []E {
	values := c.Values()
	if a.cfg.compare != nil {
		slices.SortStableFunc(values, a.cfg.compare)
	}
	return values
}

// IDs returns the keys in the same order as Sorted.
func (a *Adapter[K, E]) IDs(c Collection[K, E]) []K {
	values := a.Sorted(c)
	ids := make([]K, len(values))
	for i, e := range values {
		ids[i] = a.selectID(e)
	}
	return ids
}
