// Package registry maps entity types to their adapters.
//
// Adapters are registered explicitly at start-up, typically from the package
// that declares the entity:
//
//	var Todos = entity.NewAdapter(func(t Todo) string { return t.ID })
//
//	func init() { registry.Register(registry.Default, Todos) }
//
// and looked up by the state definitions that need them:
//
//	adapter, err := registry.Lookup[string, Todo](registry.Default)
//
// The first registration for an entity type wins; later ones are ignored.
// The registry is safe for concurrent use and is meant to be written during
// initialization and read afterwards.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/jilio/statebus/entity"
)

var (
	// ErrNotRegistered is returned by Lookup for an entity type nobody registered.
	ErrNotRegistered = errors.New("registry: adapter not registered")
	// ErrKeyTypeMismatch is returned by Lookup when the entity type was
	// registered with a different key type.
	ErrKeyTypeMismatch = errors.New("registry: adapter key type mismatch")
)

// Default is the process-wide registry.
var Default = New()

// TypeNamer is an optional interface entity types can implement to provide
// their own name in Entries and error messages.
type TypeNamer interface {
	EntityTypeName() string
}

// TypeName returns the name of an entity type.
// If the entity implements TypeNamer, returns the custom name.
// Otherwise returns the reflect-based package-qualified name.
// Returns "nil" if entity is nil.
func TypeName(entity any) string {
	if entity == nil {
		return "nil"
	}
	if namer, ok := entity.(TypeNamer); ok {
		return namer.EntityTypeName()
	}
	return reflect.TypeOf(entity).String()
}

// typeNameOf builds a sample value of t so TypeNamer works for pointer
// entity types too.
func typeNameOf(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Interface:
		return t.String()
	case reflect.Pointer:
		return TypeName(reflect.New(t.Elem()).Interface())
	default:
		return TypeName(reflect.Zero(t).Interface())
	}
}

type registration struct {
	name    string
	keyType reflect.Type
	adapter any
}

// Registry maps entity types to adapter instances.
type Registry struct {
	entries map[reflect.Type]registration
	mu      sync.RWMutex
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[reflect.Type]registration),
	}
}

// Register associates adapter with entity type E. It reports false, and
// changes nothing, when E already has an adapter.
func Register[K comparable, E any](r *Registry, adapter *entity.Adapter[K, E]) bool {
	if adapter == nil {
		panic("registry: adapter cannot be nil")
	}

	entityType := reflect.TypeOf((*E)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[entityType]; exists {
		return false
	}

	r.entries[entityType] = registration{
		name:    typeNameOf(entityType),
		keyType: reflect.TypeOf((*K)(nil)).Elem(),
		adapter: adapter,
	}
	return true
}

// Lookup returns the adapter registered for entity type E.
func Lookup[K comparable, E any](r *Registry) (*entity.Adapter[K, E], error) {
	entityType := reflect.TypeOf((*E)(nil)).Elem()

	r.mu.RLock()
	reg, ok := r.entries[entityType]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, entityType)
	}

	adapter, ok := reg.adapter.(*entity.Adapter[K, E])
	if !ok {
		return nil, fmt.Errorf("%w: %s is keyed by %s", ErrKeyTypeMismatch, reg.name, reg.keyType)
	}
	return adapter, nil
}

// MustLookup is like Lookup but panics on error.
func MustLookup[K comparable, E any](r *Registry) *entity.Adapter[K, E] {
	adapter, err := Lookup[K, E](r)
	if err != nil {
		panic(err)
	}
	return adapter
}

// Entry describes one registration.
type Entry struct {
	// Name is the entity type name.
	Name string
	// KeyType is the adapter's key type.
	KeyType reflect.Type
}

// Entries returns every registration sorted by name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	entries := make([]Entry, 0, len(r.entries))
	for _, reg := range r.entries {
		entries = append(entries, Entry{Name: reg.name, KeyType: reg.keyType})
	}
	r.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Len returns the number of registered entity types.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
