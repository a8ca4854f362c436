package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jilio/statebus/entity"
)

// Scenario is a scripted run against the todos store.
type Scenario struct {
	Name  string `yaml:"name"`
	Seed  []Todo `yaml:"seed"`
	Steps []Step `yaml:"steps"`
}

// Step is one operation of a scenario. Which fields are read depends on Op.
type Step struct {
	Op    string   `yaml:"op"`
	Todo  *Todo    `yaml:"todo,omitempty"`
	Todos []Todo   `yaml:"todos,omitempty"`
	ID    string   `yaml:"id,omitempty"`
	IDs   []string `yaml:"ids,omitempty"`
}

type stepShape int

const (
	shapeNone stepShape = iota
	shapeTodo
	shapeTodos
	shapeID
	shapeIDs
)

var stepShapes = map[string]stepShape{
	"add":              shapeTodo,
	"add_range":        shapeTodos,
	"set_all":          shapeTodos,
	"set":              shapeTodo,
	"set_many":         shapeTodos,
	"update":           shapeTodo,
	"update_range":     shapeTodos,
	"upsert":           shapeTodo,
	"upsert_range":     shapeTodos,
	"remove":           shapeID,
	"remove_range":     shapeIDs,
	"remove_completed": shapeNone,
	"remove_all":       shapeNone,
	"complete":         shapeID,
	"complete_range":   shapeIDs,
	"pause":            shapeNone,
	"resume":           shapeNone,
}

var errInvalidStep = errors.New("invalid step")

// loadScenario reads and validates a scenario file.
func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sc Scenario
	if err := dec.Decode(&sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}

	for i, step := range sc.Steps {
		if err := step.validate(); err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
	}
	return &sc, nil
}

func (s Step) validate() error {
	shape, ok := stepShapes[s.Op]
	if !ok {
		return fmt.Errorf("%w: unknown op %q", errInvalidStep, s.Op)
	}

	switch shape {
	case shapeTodo:
		if s.Todo == nil {
			return fmt.Errorf("%w: %s needs a todo", errInvalidStep, s.Op)
		}
	case shapeTodos:
		if s.Op != "set_all" && len(s.Todos) == 0 {
			return fmt.Errorf("%w: %s needs todos", errInvalidStep, s.Op)
		}
	case shapeID:
		if s.ID == "" {
			return fmt.Errorf("%w: %s needs an id", errInvalidStep, s.Op)
		}
	case shapeIDs:
		if len(s.IDs) == 0 {
			return fmt.Errorf("%w: %s needs ids", errInvalidStep, s.Op)
		}
	}
	return nil
}

// action translates a store step into the entity action it dispatches.
// Lifecycle steps (pause, resume) have no action.
func (s Step) action() any {
	type (
		K = string
		E = Todo
	)

	switch s.Op {
	case "add":
		return entity.Add[K, E]{Entity: *s.Todo}
	case "add_range":
		return entity.AddRange[K, E]{Entities: s.Todos}
	case "set_all":
		return entity.SetAll[K, E]{Entities: s.Todos}
	case "set":
		return entity.SetOne[K, E]{Entity: *s.Todo}
	case "set_many":
		return entity.SetMany[K, E]{Entities: s.Todos}
	case "update":
		return entity.Update[K, E]{Entity: *s.Todo}
	case "update_range":
		return entity.UpdateRange[K, E]{Entities: s.Todos}
	case "upsert":
		return entity.Upsert[K, E]{Entity: *s.Todo}
	case "upsert_range":
		return entity.UpsertRange[K, E]{Entities: s.Todos}
	case "remove":
		return entity.Remove[K, E]{ID: s.ID}
	case "remove_range":
		return entity.RemoveRange[K, E]{IDs: s.IDs}
	case "remove_completed":
		return entity.RemoveWhere[K, E]{Predicate: func(t Todo) bool { return t.Done }}
	case "remove_all":
		return entity.RemoveAll[K, E]{}
	case "complete":
		return entity.Map[K, E]{ID: s.ID, Transform: complete}
	case "complete_range":
		return entity.MapRange[K, E]{IDs: s.IDs, Transform: complete}
	default:
		return nil
	}
}

func complete(t Todo) Todo {
	t.Done = true
	return t
}
