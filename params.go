package rowan

import (
	"fmt"
	"reflect"
)

// resolveValue produces the value for one dependency slot. It is the
// single resolution path shared by constructor parameters, fields,
// setters, and method parameters, trying in order:
//
//  1. explicit overrides supplied by the caller
//  2. the parent scope, when the slot is marked fromParent
//  3. a keyed lookup, when the slot carries a key
//  4. ordinary resolution on the current resolver
//  5. the declared default or zero value, when the slot is optional
//
// The order is observable behavior: an override beats even a successful
// keyed lookup, and a keyed-but-optional miss recovers to the default
// instead of failing. Expected misses travel as (value, ok) internally;
// an error materializes only when no recovery applies.
func resolveValue(d *ParamDescriptor, r Resolver, overrides []Override) (reflect.Value, error) {
	if v, ok, err := fromOverrides(d, overrides); ok || err != nil {
		return v, err
	}

	if d.FromParent {
		return fromParent(d, r)
	}

	if d.Key != "" {
		return fromKeyed(d, r, d.Key)
	}

	if v, ok := r.TryResolve(d.Type); ok {
		return d.accept(v)
	}

	if d.optionalOrDefault() {
		return d.fallback(), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotRegistered, d.describe())
}

func fromOverrides(d *ParamDescriptor, overrides []Override) (reflect.Value, bool, error) {
	for _, o := range overrides {
		if o == nil || !o.CanSupply(d.Type, d.Name) {
			continue
		}
		v, err := d.accept(o.Supply(d.Type, d.Name))
		if err != nil {
			return reflect.Value{}, false, fmt.Errorf("override for %s: %w", d.describe(), err)
		}
		return v, true, nil
	}
	return reflect.Value{}, false, nil
}

func fromParent(d *ParamDescriptor, r Resolver) (reflect.Value, error) {
	p := r.Parent()
	if p == nil {
		if d.optionalOrDefault() {
			return d.fallback(), nil
		}
		return reflect.Value{}, fmt.Errorf("%w: %s", ErrNoParent, d.describe())
	}

	if d.Key != "" {
		return fromKeyed(d, p, d.Key)
	}

	if v, ok := p.TryResolve(d.Type); ok {
		return d.accept(v)
	}
	if d.optionalOrDefault() {
		return d.fallback(), nil
	}
	return reflect.Value{}, fmt.Errorf("%w: %s", ErrNotRegistered, d.describe())
}

func fromKeyed(d *ParamDescriptor, r Resolver, key string) (reflect.Value, error) {
	v, err := r.ResolveKeyed(d.Type, key)
	if err != nil {
		if d.optionalOrDefault() {
			return d.fallback(), nil
		}
		return reflect.Value{}, err
	}
	return d.accept(v)
}
