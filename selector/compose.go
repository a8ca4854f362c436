package selector

// Map projects the result of sel through fn.
func Map[S, A, T any](sel Selector[S, A], fn func(A) T) Selector[S, T] {
	return func(s S) T {
		return fn(sel(s))
	}
}

// Combine2 projects the results of two selectors.
func Combine2[S, A, B, T any](a Selector[S, A], b Selector[S, B], project func(A, B) T) Selector[S, T] {
	return func(s S) T {
		return project(a(s), b(s))
	}
}

// Combine3 projects the results of three selectors.
func Combine3[S, A, B, C, T any](a Selector[S, A], b Selector[S, B], c Selector[S, C], project func(A, B, C) T) Selector[S, T] {
	return func(s S) T {
		return project(a(s), b(s), c(s))
	}
}

// Identity returns the state itself.
func Identity[S any]() Selector[S, S] {
	return func(s S) S { return s }
}
