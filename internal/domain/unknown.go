package domain

// Unknown is a three-valued result used instead of sentinel zero values or
// exceptions for "no data" (see the module's design notes on the source
// system's exception-based control flow). A field is either known, unknown,
// or failed with a reason — never silently defaulted.
type Unknown[T any] struct {
	value  T
	known  bool
	reason string
}

// Known wraps a present value.
func Known[T any](v T) Unknown[T] {
	return Unknown[T]{value: v, known: true}
}

// UnknownValue builds an absent-but-not-erroneous field.
func UnknownValue[T any]() Unknown[T] {
	return Unknown[T]{}
}

// ErrorValue builds a field that failed to resolve, carrying a short reason.
func ErrorValue[T any](reason string) Unknown[T] {
	return Unknown[T]{reason: reason}
}

// Get returns the value and whether it is known.
func (u Unknown[T]) Get() (T, bool) {
	return u.value, u.known
}

// IsKnown reports whether the field carries a usable value.
func (u Unknown[T]) IsKnown() bool {
	return u.known
}

// Reason returns the unknown/error reason, empty when known.
func (u Unknown[T]) Reason() string {
	return u.reason
}

// MustGet returns the value or the zero value of T when unknown. Callers
// that need renormalization semantics should check IsKnown first; this is a
// convenience for call sites that already guarded on it.
func (u Unknown[T]) MustGet() T {
	return u.value
}
