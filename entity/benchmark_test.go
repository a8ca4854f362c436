package entity

import (
	"fmt"
	"strconv"
	"testing"
)

func benchState(b *testing.B, n int) (*StateAdapter[todoState, string, *todo], todoState) {
	b.Helper()

	sa := newTodoAdapter()
	todos := make([]*todo, n)
	for i := range todos {
		todos[i] = &todo{ID: strconv.Itoa(i), Title: "t" + strconv.Itoa(i)}
	}
	return sa, sa.SetAll(todos, todoState{})
}

// Benchmark a single update against collections of growing size
func BenchmarkUpdate(b *testing.B) {
	for _, n := range []int{100, 10_000, 100_000} {
		b.Run(fmt.Sprintf("size-%d", n), func(b *testing.B) {
			sa, s := benchState(b, n)
			e := &todo{ID: "0", Title: "changed"}

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = sa.Update(e, s)
			}
		})
	}
}

// Benchmark the no-op path of Add
func BenchmarkAddDuplicate(b *testing.B) {
	sa, s := benchState(b, 10_000)
	e := &todo{ID: "42"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sa.Add(e, s)
	}
}

// Benchmark sorted projection
func BenchmarkSorted(b *testing.B) {
	sa, s := benchState(b, 1_000)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = sa.Sorted(s.Todos)
	}
}
