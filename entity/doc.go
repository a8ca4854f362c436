// Package entity implements normalized entity collections for statebus.
//
// A Collection is an immutable key to entity map embedded in a larger state
// value. An Adapter is the pure operation set for one (key, entity) pair; it
// never mutates its input and shares every untouched entry with the result.
//
// # Adapters
//
// Build an adapter from the function that extracts an entity's key:
//
//	type Todo struct {
//	    ID    string
//	    Title string
//	    Done  bool
//	}
//
//	todos := entity.NewAdapter(func(t Todo) string { return t.ID },
//	    entity.WithSortComparer(func(a, b Todo) int { return strings.Compare(a.Title, b.Title) }),
//	)
//
// # State adapters
//
// Bind the adapter to the state type that owns the collection:
//
//	type TodoState struct {
//	    Todos  entity.Collection[string, Todo]
//	    Filter string
//	}
//
//	sa := entity.Bind(todos,
//	    func(s TodoState) entity.Collection[string, Todo] { return s.Todos },
//	    func(s TodoState, c entity.Collection[string, Todo]) TodoState { s.Todos = c; return s },
//	)
//
//	next := sa.Add(Todo{ID: "1", Title: "write docs"}, state)
//	next, err := sa.Map("1", func(t Todo) Todo { t.Done = true; return t }, next)
//
// Operations that change nothing (adding a duplicate key, removing or updating
// an absent one) return the input state as is. Map is the only operation that
// fails: it returns ErrOutOfRange when the key is absent.
//
// # Store integration
//
// Register wires the adapter into a statebus feature so that the generic
// action types (Add, Update, Remove, Map, ...) are reduced through it:
//
//	feature := statebus.MustAddFeature(store, "todos", TodoState{})
//	entity.Register(feature, sa)
//
//	store.Dispatch(ctx, entity.Add[string, Todo]{Entity: Todo{ID: "1"}})
package entity
