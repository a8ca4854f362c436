package registry

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jilio/statebus/entity"
)

type Order struct {
	ID    int
	Total float64
}

type Customer struct {
	Email string
}

func (Customer) EntityTypeName() string { return "crm/customer" }

type Invoice struct{ Number string }

func (*Invoice) EntityTypeName() string { return "billing/invoice" }

func TestRegisterAndLookup(t *testing.T) {
	r := New()
	orders := entity.NewAdapter(func(o Order) int { return o.ID })

	require.True(t, Register(r, orders))

	got, err := Lookup[int, Order](r)
	require.NoError(t, err)
	assert.Same(t, orders, got)
	assert.Equal(t, 1, r.Len())
}

func TestFirstRegistrationWins(t *testing.T) {
	r := New()
	first := entity.NewAdapter(func(o Order) int { return o.ID })
	second := entity.NewAdapter(func(o Order) int { return -o.ID })

	assert.True(t, Register(r, first))
	assert.False(t, Register(r, second), "conflicting registration is ignored")

	got := MustLookup[int, Order](r)
	assert.Same(t, first, got)
}

func TestLookupNotRegistered(t *testing.T) {
	r := New()

	got, err := Lookup[int, Order](r)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrNotRegistered))
	assert.Contains(t, err.Error(), "registry.Order")

	assert.Panics(t, func() { MustLookup[int, Order](r) })
}

func TestLookupKeyTypeMismatch(t *testing.T) {
	r := New()
	Register(r, entity.NewAdapter(func(o Order) int { return o.ID }))

	_, err := Lookup[string, Order](r)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrKeyTypeMismatch))
	assert.False(t, errors.Is(err, ErrNotRegistered))
	assert.Contains(t, err.Error(), "int")
}

func TestRegisterNilAdapter(t *testing.T) {
	assert.Panics(t, func() {
		Register[int, Order](New(), nil)
	})
}

func TestEntries(t *testing.T) {
	r := New()
	Register(r, entity.NewAdapter(func(o Order) int { return o.ID }))
	Register(r, entity.NewAdapter(func(c Customer) string { return c.Email }))
	Register(r, entity.NewAdapter(func(i *Invoice) string { return i.Number }))

	entries := r.Entries()
	require.Len(t, entries, 3)

	assert.Equal(t, "billing/invoice", entries[0].Name)
	assert.Equal(t, "crm/customer", entries[1].Name)
	assert.Equal(t, "registry.Order", entries[2].Name)
	assert.Equal(t, reflect.TypeOf(0), entries[2].KeyType)
	assert.Equal(t, reflect.TypeOf(""), entries[1].KeyType)
}

func TestTypeName(t *testing.T) {
	tests := []struct {
		name     string
		entity   any
		expected string
	}{
		{"struct", Order{}, "registry.Order"},
		{"pointer", &Order{}, "*registry.Order"},
		{"type namer", Customer{}, "crm/customer"},
		{"pointer type namer", &Invoice{}, "billing/invoice"},
		{"nil", nil, "nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TypeName(tt.entity))
		})
	}
}

func TestConcurrentLookup(t *testing.T) {
	r := New()
	orders := entity.NewAdapter(func(o Order) int { return o.ID })
	Register(r, orders)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := Lookup[int, Order](r)
			assert.NoError(t, err)
			assert.Same(t, orders, got)
		}()
	}
	wg.Wait()
}
