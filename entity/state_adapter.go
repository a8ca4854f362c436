package entity

// StateAdapter lifts an Adapter over a state value S that owns one collection.
// The accessor pair is the only way it reaches the collection; other fields of
// S are carried through untouched.
type StateAdapter[S any, K comparable, E any] struct {
	*Adapter[K, E]
	get  func(S) Collection[K, E]
	with func(S, Collection[K, E]) S
}

// Bind creates a StateAdapter from an adapter and the state's accessor pair.
// with must return a copy of the state holding the given collection.
func Bind[S any, K comparable, E any](
	adapter *Adapter[K, E],
	get func(S) Collection[K, E],
	with func(S, Collection[K, E]) S,
) *StateAdapter[S, K, E] {
	if adapter == nil || get == nil || with == nil {
		panic("entity: Bind requires an adapter and both accessors")
	}
	return &StateAdapter[S, K, E]{
		Adapter: adapter,
		get:     get,
		with:    with,
	}
}

// Collection returns the collection held by s.
func (sa *StateAdapter[S, K, E]) Collection(s S) Collection[K, E] {
	return sa.get(s)
}

// apply swaps in next unless it is the same version as the current collection,
// in which case s is returned as is.
func (sa *StateAdapter[S, K, E]) apply(s S, next Collection[K, E]) S {
	if sa.get(s).Same(next) {
		return s
	}
	return sa.with(s, next)
}

// Add inserts e only if its key is absent.
func (sa *StateAdapter[S, K, E]) Add(e E, s S) S {
	return sa.apply(s, sa.AddOne(e, sa.get(s)))
}

// AddRange inserts every entity whose key is absent; first occurrence wins
// within the batch.
func (sa *StateAdapter[S, K, E]) AddRange(es []E, s S) S {
	return sa.apply(s, sa.AddMany(es, sa.get(s)))
}

// SetAll replaces the collection with exactly es.
func (sa *StateAdapter[S, K, E]) SetAll(es []E, s S) S {
	return sa.with(s, sa.Adapter.SetAll(es, sa.get(s)))
}

// SetOne inserts or overwrites e.
func (sa *StateAdapter[S, K, E]) SetOne(e E, s S) S {
	return sa.apply(s, sa.Adapter.SetOne(e, sa.get(s)))
}

// SetMany inserts or overwrites each entity.
func (sa *StateAdapter[S, K, E]) SetMany(es []E, s S) S {
	return sa.apply(s, sa.Adapter.SetMany(es, sa.get(s)))
}

// Remove removes id if present.
func (sa *StateAdapter[S, K, E]) Remove(id K, s S) S {
	return sa.apply(s, sa.RemoveOne(id, sa.get(s)))
}

// RemoveRange removes every present id.
func (sa *StateAdapter[S, K, E]) RemoveRange(ids []K, s S) S {
	return sa.apply(s, sa.RemoveMany(ids, sa.get(s)))
}

// RemoveWhere removes every entity matching pred.
func (sa *StateAdapter[S, K, E]) RemoveWhere(pred func(E) bool, s S) S {
	return sa.apply(s, sa.Adapter.RemoveWhere(pred, sa.get(s)))
}

// RemoveAll empties the collection.
func (sa *StateAdapter[S, K, E]) RemoveAll(s S) S {
	return sa.apply(s, sa.Adapter.RemoveAll(sa.get(s)))
}

// Update overwrites e only if its key exists.
func (sa *StateAdapter[S, K, E]) Update(e E, s S) S {
	return sa.apply(s, sa.UpdateOne(e, sa.get(s)))
}

// UpdateRange overwrites each entity whose key exists and drops the rest.
func (sa *StateAdapter[S, K, E]) UpdateRange(es []E, s S) S {
	return sa.apply(s, sa.UpdateMany(es, sa.get(s)))
}

// Upsert inserts or overwrites e.
func (sa *StateAdapter[S, K, E]) Upsert(e E, s S) S {
	return sa.apply(s, sa.UpsertOne(e, sa.get(s)))
}

// UpsertRange inserts or overwrites each entity.
func (sa *StateAdapter[S, K, E]) UpsertRange(es []E, s S) S {
	return sa.apply(s, sa.UpsertMany(es, sa.get(s)))
}

// Map replaces the entity at id with fn(entity).
// If id is absent it returns s unchanged and an error wrapping ErrOutOfRange.
func (sa *StateAdapter[S, K, E]) Map(id K, fn func(E) E, s S) (S, error) {
	next, err := sa.MapOne(id, fn, sa.get(s))
	if err != nil {
		return s, err
	}
	return sa.with(s, next), nil
}

// MapRange applies fn to every present id and skips the others.
func (sa *StateAdapter[S, K, E]) MapRange(ids []K, fn func(E) E, s S) S {
	return sa.apply(s, sa.MapMany(ids, fn, sa.get(s)))
}
