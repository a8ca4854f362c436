package entity

// Option configures an Adapter.
type Option[E any] func(*adapterConfig[E])

type adapterConfig[E any] struct {
	compare func(a, b E) int
}

// WithSortComparer orders the output of Sorted, IDs and the list selectors.
// cmp follows the cmp.Compare convention.
func WithSortComparer[E any](cmp func(a, b E) int) Option[E] {
	return func(c *adapterConfig[E]) {
		c.compare = cmp
	}
}
