package rowan

import (
	"fmt"
	"reflect"
)

// Resolver is the capability the engine consumes to look up registered
// dependencies. The engine never registers anything itself; a container
// supplies a Resolver and the engine drives it.
//
// The engine assumes the resolver's registration set is stable for the
// duration of a single injection call.
type Resolver interface {
	// Resolve returns the value registered for t, failing when nothing is
	// registered.
	Resolve(t reflect.Type) (any, error)

	// TryResolve returns the value registered for t. It never fails for
	// "not registered"; absence reads as ok == false.
	TryResolve(t reflect.Type) (any, bool)

	// ResolveKeyed returns the value registered for t under the given
	// string key, failing when the keyed entry is absent.
	ResolveKeyed(t reflect.Type, key string) (any, error)

	// Parent returns the enclosing scope, or nil at the root.
	Parent() Resolver
}

// Override supplies values for specific injection points, taking
// precedence over every other resolution strategy for a single call.
type Override interface {
	// CanSupply reports whether the override covers a slot of the given
	// declared type and name.
	CanSupply(t reflect.Type, name string) bool

	// Supply returns the value for a slot CanSupply accepted.
	Supply(t reflect.Type, name string) any
}

// WithValue returns an [Override] that supplies v for any injection point
// whose declared type v is assignable to.
func WithValue(v any) Override { return valueOverride{v: v} }

type valueOverride struct{ v any }

func (o valueOverride) CanSupply(t reflect.Type, _ string) bool { return assignable(o.v, t) }
func (o valueOverride) Supply(reflect.Type, string) any         { return o.v }

// WithNamed returns an [Override] that supplies v only for the injection
// point carrying the given parameter or member name.
func WithNamed(name string, v any) Override { return namedOverride{name: name, v: v} }

type namedOverride struct {
	name string
	v    any
}

func (o namedOverride) CanSupply(t reflect.Type, name string) bool {
	return name != "" && name == o.name && assignable(o.v, t)
}

func (o namedOverride) Supply(reflect.Type, string) any { return o.v }

// ResolveAs is a generic helper that resolves a typed value from any
// [Resolver]:
//
//	db, err := rowan.ResolveAs[*Database](reg)
func ResolveAs[T any](r Resolver) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()

	v, err := r.Resolve(t)
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cannot convert %T to %s", v, t)
	}
	return out, nil
}

// assignable reports whether v can be assigned to a slot of type t. A nil
// v is assignable to any nilable target.
func assignable(v any, t reflect.Type) bool {
	if v == nil {
		return nilable(t)
	}
	return reflect.TypeOf(v).AssignableTo(t)
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return true
	default:
		return false
	}
}
