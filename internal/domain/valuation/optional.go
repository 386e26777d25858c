package valuation

// Optional is a tagged value used for filter criteria: an unset Optional
// places no constraint, a set one must match exactly.
type Optional[T comparable] struct {
	value T
	set   bool
}

func Some[T comparable](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func None[T comparable]() Optional[T] {
	return Optional[T]{}
}

func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

func (o Optional[T]) IsSet() bool {
	return o.set
}

// Matches reports whether v satisfies the constraint.
func (o Optional[T]) Matches(v T) bool {
	return !o.set || o.value == v
}
