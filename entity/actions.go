package entity

import (
	"reflect"

	"github.com/jilio/statebus"
)

// Operation names the adapter operation an action requests.
type Operation string

const (
	OperationAdd         Operation = "add"
	OperationAddRange    Operation = "add_range"
	OperationSetAll      Operation = "set_all"
	OperationSetOne      Operation = "set_one"
	OperationSetMany     Operation = "set_many"
	OperationRemove      Operation = "remove"
	OperationRemoveRange Operation = "remove_range"
	OperationRemoveWhere Operation = "remove_where"
	OperationRemoveAll   Operation = "remove_all"
	OperationUpdate      Operation = "update"
	OperationUpdateRange Operation = "update_range"
	OperationUpsert      Operation = "upsert"
	OperationUpsertRange Operation = "upsert_range"
	OperationMap         Operation = "map"
	OperationMapRange    Operation = "map_range"
)

// Action types are parameterized by both key and entity type so that two
// collections sharing a key type never receive each other's actions.

// Add requests StateAdapter.Add.
type Add[K comparable, E any] struct{ Entity E }

// AddRange requests StateAdapter.AddRange.
type AddRange[K comparable, E any] struct{ Entities []E }

// SetAll requests StateAdapter.SetAll.
type SetAll[K comparable, E any] struct{ Entities []E }

// SetOne requests StateAdapter.SetOne.
type SetOne[K comparable, E any] struct{ Entity E }

// SetMany requests StateAdapter.SetMany.
type SetMany[K comparable, E any] struct{ Entities []E }

// Remove requests StateAdapter.Remove.
type Remove[K comparable, E any] struct{ ID K }

// RemoveRange requests StateAdapter.RemoveRange.
type RemoveRange[K comparable, E any] struct{ IDs []K }

// RemoveWhere requests StateAdapter.RemoveWhere.
type RemoveWhere[K comparable, E any] struct{ Predicate func(E) bool }

// RemoveAll requests StateAdapter.RemoveAll.
type RemoveAll[K comparable, E any] struct{}

// Update requests StateAdapter.Update.
type Update[K comparable, E any] struct{ Entity E }

// UpdateRange requests StateAdapter.UpdateRange.
type UpdateRange[K comparable, E any] struct{ Entities []E }

// Upsert requests StateAdapter.Upsert.
type Upsert[K comparable, E any] struct{ Entity E }

// UpsertRange requests StateAdapter.UpsertRange.
type UpsertRange[K comparable, E any] struct{ Entities []E }

// Map requests StateAdapter.Map. Dispatch fails if ID is absent.
type Map[K comparable, E any] struct {
	ID        K
	Transform func(E) E
}

// MapRange requests StateAdapter.MapRange.
type MapRange[K comparable, E any] struct {
	IDs       []K
	Transform func(E) E
}

func (Add[K, E]) ActionTypeName() string         { return actionName[E](OperationAdd) }
func (AddRange[K, E]) ActionTypeName() string    { return actionName[E](OperationAddRange) }
func (SetAll[K, E]) ActionTypeName() string      { return actionName[E](OperationSetAll) }
func (SetOne[K, E]) ActionTypeName() string      { return actionName[E](OperationSetOne) }
func (SetMany[K, E]) ActionTypeName() string     { return actionName[E](OperationSetMany) }
func (Remove[K, E]) ActionTypeName() string      { return actionName[E](OperationRemove) }
func (RemoveRange[K, E]) ActionTypeName() string { return actionName[E](OperationRemoveRange) }
func (RemoveWhere[K, E]) ActionTypeName() string { return actionName[E](OperationRemoveWhere) }
func (RemoveAll[K, E]) ActionTypeName() string   { return actionName[E](OperationRemoveAll) }
func (Update[K, E]) ActionTypeName() string      { return actionName[E](OperationUpdate) }
func (UpdateRange[K, E]) ActionTypeName() string { return actionName[E](OperationUpdateRange) }
func (Upsert[K, E]) ActionTypeName() string      { return actionName[E](OperationUpsert) }
func (UpsertRange[K, E]) ActionTypeName() string { return actionName[E](OperationUpsertRange) }
func (Map[K, E]) ActionTypeName() string         { return actionName[E](OperationMap) }
func (MapRange[K, E]) ActionTypeName() string    { return actionName[E](OperationMapRange) }

func actionName[E any](op Operation) string {
	return "entity." + string(op) + ":" + reflect.TypeOf((*E)(nil)).Elem().String()
}

// Register wires every entity action for (K, E) into feature f through sa.
// A RemoveWhere, Map or MapRange action carrying a nil function leaves the
// state untouched.
func Register[S any, K comparable, E any](f *statebus.Feature[S], sa *StateAdapter[S, K, E]) {
	statebus.On(f, func(s S, a Add[K, E]) S { return sa.Add(a.Entity, s) })
	statebus.On(f, func(s S, a AddRange[K, E]) S { return sa.AddRange(a.Entities, s) })
	statebus.On(f, func(s S, a SetAll[K, E]) S { return sa.SetAll(a.Entities, s) })
	statebus.On(f, func(s S, a SetOne[K, E]) S { return sa.SetOne(a.Entity, s) })
	statebus.On(f, func(s S, a SetMany[K, E]) S { return sa.SetMany(a.Entities, s) })
	statebus.On(f, func(s S, a Remove[K, E]) S { return sa.Remove(a.ID, s) })
	statebus.On(f, func(s S, a RemoveRange[K, E]) S { return sa.RemoveRange(a.IDs, s) })
	statebus.On(f, func(s S, a RemoveWhere[K, E]) S {
		if a.Predicate == nil {
			return s
		}
		return sa.RemoveWhere(a.Predicate, s)
	})
	statebus.On(f, func(s S, _ RemoveAll[K, E]) S { return sa.RemoveAll(s) })
	statebus.On(f, func(s S, a Update[K, E]) S { return sa.Update(a.Entity, s) })
	statebus.On(f, func(s S, a UpdateRange[K, E]) S { return sa.UpdateRange(a.Entities, s) })
	statebus.On(f, func(s S, a Upsert[K, E]) S { return sa.Upsert(a.Entity, s) })
	statebus.On(f, func(s S, a UpsertRange[K, E]) S { return sa.UpsertRange(a.Entities, s) })
	statebus.OnE(f, func(s S, a Map[K, E]) (S, error) {
		if a.Transform == nil {
			return s, nil
		}
		return sa.Map(a.ID, a.Transform, s)
	})
	statebus.On(f, func(s S, a MapRange[K, E]) S {
		if a.Transform == nil {
			return s
		}
		return sa.MapRange(a.IDs, a.Transform, s)
	})
}
