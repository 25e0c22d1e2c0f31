package rowan

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRegistered is returned when ordinary or keyed resolution finds
	// nothing and the dependency is neither optional nor defaulted.
	ErrNotRegistered = errors.New("service not registered")

	// ErrNoParent is returned when a fromParent dependency is requested on
	// a resolver without a parent scope.
	ErrNoParent = errors.New("no parent resolver")

	// ErrNoConstructor is returned when instance creation is attempted for
	// a type whose metadata carries no constructor.
	ErrNoConstructor = errors.New("no injectable constructor")

	// ErrNilResolver is returned when an injection operation is called
	// with a nil resolver.
	ErrNilResolver = errors.New("resolver is nil")

	// ErrNilInstance is returned when member or method injection is called
	// on a nil instance.
	ErrNilInstance = errors.New("instance is nil")

	// ErrDuplicateEntry is returned when a registry value, provider, or
	// keyed entry is registered more than once.
	ErrDuplicateEntry = errors.New("duplicate registration")
)

// InvocationError wraps a failure raised by the underlying constructor,
// field write, setter, or injection method — as opposed to a resolution
// failure, which propagates unwrapped. Target names the type being
// injected; Member names the failing member when the phase has one.
type InvocationError struct {
	Target string
	Member string
	Phase  Phase
	Err    error
}

func (e *InvocationError) Error() string {
	if e.Member == "" {
		return fmt.Sprintf("%s injection of %s failed: %v", e.Phase, e.Target, e.Err)
	}
	return fmt.Sprintf("%s injection of %s.%s failed: %v", e.Phase, e.Target, e.Member, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }
