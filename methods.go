package rowan

import (
	"fmt"
	"reflect"
)

// injectMethods invokes the metadata's injection methods in pre-sorted
// order. The order is a correctness property, not an optimization: later
// methods may depend on side effects of earlier ones.
func injectMethods(t reflect.Type, instance any, methods []MethodDescriptor, r Resolver, overrides []Override, pool *BufferPool) error {
	if len(methods) == 0 {
		return nil
	}
	if instance == nil {
		return fmt.Errorf("%w: invoking injection methods of %s", ErrNilInstance, t)
	}
	if r == nil {
		return fmt.Errorf("%w: invoking injection methods of %s", ErrNilResolver, t)
	}

	v := reflect.ValueOf(instance)
	for i := range methods {
		if err := invokeMethod(t, v, &methods[i], r, overrides, pool); err != nil {
			return err
		}
	}
	return nil
}

// invokeMethod rents an argument buffer per call and releases it on every
// exit path.
func invokeMethod(t reflect.Type, instance reflect.Value, m *MethodDescriptor, r Resolver, overrides []Override, pool *BufferPool) error {
	args := pool.Rent(len(m.Params))
	defer pool.Release(args)

	for i := range m.Params {
		v, err := resolveValue(&m.Params[i], r, overrides)
		if err != nil {
			return err
		}
		args[i] = v
	}

	out := instance.Method(m.index).Call(args)
	if n := len(out); n > 0 {
		// Method returns are not validated at build time, so the error
		// check must hold for any signature. Only interface kinds are
		// nil-checkable; a concrete error-shaped return is ignored.
		last := out[n-1]
		if last.Kind() == reflect.Interface && last.Type().Implements(errorType) && !last.IsNil() {
			return &InvocationError{
				Target: t.String(),
				Member: m.Name,
				Phase:  PhaseMethods,
				Err:    last.Interface().(error),
			}
		}
	}
	return nil
}
