package entity

import (
	"hash/maphash"
	"iter"

	"github.com/benbjohnson/immutable"
)

// seed is shared by every collection so that maps derived from one another
// keep hashing keys identically.
var seed = maphash.MakeSeed()

// keyHasher hashes any comparable key for the persistent map.
type keyHasher[K comparable] struct{}

func (keyHasher[K]) Hash(key K) uint32 {
	return uint32(maphash.Comparable(seed, key))
}

func (keyHasher[K]) Equal(a, b K) bool {
	return a == b
}

// Collection is an immutable keyed set of entities.
// Every mutation returns a new Collection; the receiver is never modified and
// untouched entries are shared between the two versions.
//
// The zero value is an empty collection.
type Collection[K comparable, E any] struct {
	m *immutable.Map[K, E]
}

// NewCollection creates an empty collection.
func NewCollection[K comparable, E any]() Collection[K, E] {
	return Collection[K, E]{m: immutable.NewMap[K, E](keyHasher[K]{})}
}

func (c Collection[K, E]) entries() *immutable.Map[K, E] {
	if c.m == nil {
		return immutable.NewMap[K, E](keyHasher[K]{})
	}
	return c.m
}

// Get retrieves an entity by key.
func (c Collection[K, E]) Get(key K) (E, bool) {
	if c.m == nil {
		var zero E
		return zero, false
	}
	return c.m.Get(key)
}

// Has reports whether key is present.
func (c Collection[K, E]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Len returns the number of entities.
func (c Collection[K, E]) Len() int {
	if c.m == nil {
		return 0
	}
	return c.m.Len()
}

// Same reports whether both collections are the same version.
// It is the cheap equality check consumers use before comparing contents.
func (c Collection[K, E]) Same(other Collection[K, E]) bool {
	return c.m == other.m
}

// All iterates over every key/entity pair. Order is unspecified.
func (c Collection[K, E]) All() iter.Seq2[K, E] {
	return func(yield func(K, E) bool) {
		if c.m == nil {
			return
		}
		itr := c.m.Iterator()
		for !itr.Done() {
			k, v, _ := itr.Next()
			if !yield(k, v) {
				return
			}
		}
	}
}

// Keys returns every key. Order is unspecified.
func (c Collection[K, E]) Keys() []K {
	keys := make([]K, 0, c.Len())
	for k := range c.All() {
		keys = append(keys, k)
	}
	return keys
}

// Values returns every entity. Order is unspecified.
func (c Collection[K, E]) Values() []E {
	values := make([]E, 0, c.Len())
	for _, v := range c.All() {
		values = append(values, v)
	}
	return values
}

// ToMap returns a copy of the collection as a plain map.
func (c Collection[K, E]) ToMap() map[K]E {
	result := make(map[K]E, c.Len())
	for k, v := range c.All() {
		result[k] = v
	}
	return result
}

func (c Collection[K, E]) set(key K, e E) Collection[K, E] {
	return Collection[K, E]{m: c.entries().Set(key, e)}
}

func (c Collection[K, E]) delete(key K) Collection[K, E] {
	return Collection[K, E]{m: c.entries().Delete(key)}
}
