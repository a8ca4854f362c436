package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jilio/statebus"
	"github.com/jilio/statebus/entity"
	"github.com/jilio/statebus/registry"
	"github.com/jilio/statebus/selector"
)

// Todo is the entity the scenarios operate on.
type Todo struct {
	ID    string `yaml:"id"`
	Title string `yaml:"title"`
	Done  bool   `yaml:"done"`
}

// EntityTypeName names the entity in the adapter registry.
func (Todo) EntityTypeName() string { return "todo" }

// TodoState is the state of the todos feature.
type TodoState struct {
	Todos entity.Collection[string, Todo]
}

var todoAdapter = entity.NewAdapter(func(t Todo) string { return t.ID },
	entity.WithSortComparer(func(a, b Todo) int { return strings.Compare(a.Title, b.Title) }),
)

func init() {
	registry.Register(registry.Default, todoAdapter)
}

type lifecycle interface {
	Pause()
	Resume()
	Dispose() error
}

// runner owns the store and the subscriptions of one scenario run.
type runner struct {
	store *statebus.Store
	todos *statebus.Feature[TodoState]
	out   io.Writer
	subs  []lifecycle
}

func newRunner(reg *registry.Registry, out io.Writer, opts ...statebus.Option) (*runner, error) {
	adapter, err := registry.Lookup[string, Todo](reg)
	if err != nil {
		return nil, err
	}

	sa := entity.Bind(adapter,
		func(s TodoState) entity.Collection[string, Todo] { return s.Todos },
		func(s TodoState, c entity.Collection[string, Todo]) TodoState {
			s.Todos = c
			return s
		},
	)

	st := statebus.New(opts...)
	todos, err := statebus.AddFeature(st, "todos", TodoState{Todos: adapter.Empty()},
		statebus.WithStateEqual(func(a, b TodoState) bool { return a.Todos.Same(b.Todos) }),
	)
	if err != nil {
		return nil, err
	}
	entity.Register(todos, sa)

	r := &runner{store: st, todos: todos, out: out}

	state := selector.Selector[statebus.State, TodoState](todos.Select)
	all := sa.Selectors()

	watch(r, "total", selector.Map(state, all.Total), selector.Comparable[int]())
	watch(r, "completed", selector.Map(state, sa.Count(func(t Todo) bool { return t.Done })), selector.Comparable[int]())
	watch(r, "titles", selector.Map(state, func(s TodoState) string {
		titles := make([]string, 0, s.Todos.Len())
		for _, t := range all.All(s) {
			titles = append(titles, t.Title)
		}
		return strings.Join(titles, ", ")
	}), selector.Comparable[string]())

	return r, nil
}

// watch subscribes sel and prints every notification.
func watch[T any](r *runner, name string, sel selector.Selector[statebus.State, T], opts ...selector.Option[T]) {
	subOpts := []statebus.SubscriptionOption[T]{statebus.WithName[T](name)}
	for _, opt := range opts {
		subOpts = append(subOpts, statebus.WithSelectorOption(opt))
	}

	sub := statebus.Subscribe(r.store, sel, subOpts...)
	sub.Changed().Subscribe(func(v T) {
		fmt.Fprintf(r.out, "  %s -> %v\n", name, v)
	})
	r.subs = append(r.subs, sub)
}

// run seeds the store and applies every step. Failed steps are reported and
// counted; the run goes on.
func (r *runner) run(ctx context.Context, sc *Scenario) (failed int) {
	logger := r.store.Logger()

	if len(sc.Seed) > 0 {
		if err := r.store.Dispatch(ctx, entity.SetAll[string, Todo]{Entities: sc.Seed}); err != nil {
			fmt.Fprintf(r.out, "seed: %v\n", err)
			return 1
		}
	}

	for i, step := range sc.Steps {
		fmt.Fprintf(r.out, "step %d: %s\n", i+1, step.Op)

		switch step.Op {
		case "pause":
			for _, s := range r.subs {
				s.Pause()
			}
			continue
		case "resume":
			for _, s := range r.subs {
				s.Resume()
			}
			continue
		}

		if err := r.store.Dispatch(ctx, step.action()); err != nil {
			logger.Warn("step failed", "step", i+1, "op", step.Op, "error", err)
			fmt.Fprintf(r.out, "  error: %v\n", err)
			failed++
		}
	}
	return failed
}

func (r *runner) close() {
	for _, s := range r.subs {
		if err := s.Dispose(); err != nil {
			r.store.Logger().Error("dispose subscription", "error", err)
		}
	}
}

func logLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", name, err)
	}
	return level, nil
}
