package statebus

import (
	"errors"
	"reflect"
)

// ErrNilAction is returned by Dispatch when the action is nil.
var ErrNilAction = errors.New("statebus: action cannot be nil")

// TypeNamer is an optional interface that actions can implement to provide
// a stable name for logs and metrics.
//
// Example:
//
//	type AddTodo struct { ... }
//	func (AddTodo) ActionTypeName() string { return "todos/add" }
type TypeNamer interface {
	ActionTypeName() string
}

// ActionType returns the name of an action.
// If the action implements TypeNamer, returns the custom name.
// Otherwise returns the reflect-based package-qualified name.
// Returns "nil" if action is nil.
func ActionType(action any) string {
	if action == nil {
		return "nil"
	}
	if namer, ok := action.(TypeNamer); ok {
		return namer.ActionTypeName()
	}
	return reflect.TypeOf(action).String()
}

// typeOf returns the reflect.Type reducers and effects are keyed by.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// typeOfValue returns the dynamic type a dispatched action is routed by.
func typeOfValue(action any) reflect.Type {
	return reflect.TypeOf(action)
}
