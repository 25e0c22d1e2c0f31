package rowan

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Metadata describes every injection point of one type. It is built at
// most once per type by the [Cache] and never mutated afterwards, so it is
// safe for unsynchronized concurrent reads.
type Metadata struct {
	Type reflect.Type

	// Ctor is nil when the type declares no constructor. That is not an
	// error by itself; CreateInstance reports ErrNoConstructor only when
	// construction is actually attempted.
	Ctor *ConstructorDescriptor

	Fields  []MemberDescriptor
	Setters []MemberDescriptor

	// Methods is pre-sorted ascending by Order; ties keep declaration
	// order.
	Methods []MethodDescriptor
}

// ParamDescriptor describes a single dependency slot: a constructor or
// method parameter, or a field/setter modeled as a one-parameter member.
type ParamDescriptor struct {
	Name       string
	Type       reflect.Type
	Optional   bool
	Key        string
	FromParent bool
	HasDefault bool
	Default    any
}

// optionalOrDefault reports whether a resolution miss may recover locally.
func (d *ParamDescriptor) optionalOrDefault() bool { return d.Optional || d.HasDefault }

// fallback returns the declared default, or the zero value of the slot's
// type.
func (d *ParamDescriptor) fallback() reflect.Value {
	if d.HasDefault && d.Default != nil {
		v, err := d.accept(d.Default)
		if err == nil {
			return v
		}
	}
	return reflect.Zero(d.Type)
}

// accept converts a resolved value into the slot's declared type. A nil
// value becomes the zero value.
func (d *ParamDescriptor) accept(v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(d.Type), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(d.Type) {
		return reflect.Value{}, fmt.Errorf("resolved %s is not assignable to %s", rv.Type(), d.describe())
	}
	if rv.Type() != d.Type {
		out := reflect.New(d.Type).Elem()
		out.Set(rv)
		return out, nil
	}
	return rv, nil
}

// describe renders the slot for error messages, e.g. "db" (*pkg.Database).
func (d *ParamDescriptor) describe() string {
	if d.Name == "" {
		return d.Type.String()
	}
	return fmt.Sprintf("%q (%s)", d.Name, d.Type)
}

// ConstructorDescriptor holds the selected constructor function and its
// parameter descriptors in declaration order.
type ConstructorDescriptor struct {
	fn         reflect.Value
	returnsErr bool
	Params     []ParamDescriptor
}

// MemberDescriptor describes an injectable field or setter.
type MemberDescriptor struct {
	ParamDescriptor

	// index is the field index path from the struct root; nil for setters.
	index []int

	// setter is the method index on the instance type; -1 for fields.
	setter int
}

// MethodDescriptor describes one injection method.
type MethodDescriptor struct {
	Name   string
	Order  int
	Params []ParamDescriptor

	// index is the method index on the instance type.
	index int
}
