package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jilio/statebus/registry"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// assertInOrder checks that every line of want appears in got, in order.
func assertInOrder(t *testing.T, got string, want ...string) {
	t.Helper()

	lines := strings.Split(got, "\n")
	i := 0
	for _, line := range lines {
		if i < len(want) && line == want[i] {
			i++
		}
	}
	assert.Equal(t, len(want), i, "missing %q in output:\n%s", want[min(i, len(want)-1)], got)
}

func TestRunScenario(t *testing.T) {
	out, stderr, err := execute(t, "run", "testdata/chores.yaml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 9 steps failed")

	assertInOrder(t, out,
		"scenario: weekly chores",
		"  total -> 2",
		"  titles -> dishes, laundry",
		"step 1: add",
		"  total -> 3",
		"  titles -> dishes, groceries, laundry",
		"step 2: add",
		"step 3: complete",
		"  completed -> 1",
		"step 4: pause",
		"step 5: complete",
		"step 6: complete",
		"step 7: resume",
		"  completed -> 3",
		"step 8: complete",
		"step 9: remove_completed",
		"  total -> 0",
		"  completed -> 0",
		"done: 9 steps, 1 failed",
	)
	assert.Contains(t, out, "entity: key out of range")
	assert.Contains(t, stderr, "step failed")

	// paused subscriptions stay silent until resume
	paused := out[strings.Index(out, "step 4: pause"):strings.Index(out, "step 7: resume")]
	assert.NotContains(t, paused, "->")
}

func TestRunCleanScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clean.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
steps:
  - op: upsert_range
    todos:
      - {id: a, title: write}
      - {id: b, title: review, done: true}
  - op: update
    todo: {id: zz, title: ghost}
  - op: complete_range
    ids: [a, zz]
  - op: remove_all
`), 0o600))

	out, _, err := execute(t, "run", path, "--metrics")
	require.NoError(t, err)

	assertInOrder(t, out,
		"step 1: upsert_range",
		"  total -> 2",
		"  completed -> 1",
		"  titles -> review, write",
		"step 2: update",
		"step 3: complete_range",
		"  completed -> 2",
		"step 4: remove_all",
		"done: 4 steps, 0 failed",
		"metrics:",
	)
	assert.NotContains(t, out, "scenario:")
	assert.Contains(t, out, `statebus_dispatch_total{action="entity.remove_all:main.Todo"} 1`)
}

func TestRunInvalidScenario(t *testing.T) {
	_, _, err := execute(t, "run", "testdata/invalid.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInvalidStep))
	assert.Contains(t, err.Error(), "step 1")

	_, _, err = execute(t, "run", "testdata/missing.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRunRejectsBadLogLevel(t *testing.T) {
	_, _, err := execute(t, "--log-level", "loud", "run", "testdata/chores.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestAdaptersCommand(t *testing.T) {
	out, _, err := execute(t, "adapters")
	require.NoError(t, err)
	assert.Contains(t, out, "todo\tkey=string")
}

func TestParseScenarioRejectsUnknownFields(t *testing.T) {
	_, err := parseScenario([]byte("steps:\n  - op: add\n    entity: {id: x}\n"))
	require.Error(t, err)
}

func TestParseScenarioUnknownOp(t *testing.T) {
	_, err := parseScenario([]byte("steps:\n  - op: explode\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errInvalidStep))
}

func TestNewRunnerWithoutAdapter(t *testing.T) {
	_, err := newRunner(registry.New(), &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrNotRegistered))
}
