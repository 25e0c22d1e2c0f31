package rowan

import (
	"fmt"
	"reflect"
)

// newInstance resolves every constructor parameter in declaration order
// and invokes the constructor. The argument buffer is rented from the pool
// and released on every exit path, including resolution failures.
func newInstance(t reflect.Type, ctor *ConstructorDescriptor, r Resolver, overrides []Override, pool *BufferPool) (any, error) {
	if ctor == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoConstructor, t)
	}
	if r == nil {
		return nil, fmt.Errorf("%w: creating %s", ErrNilResolver, t)
	}

	args := pool.Rent(len(ctor.Params))
	defer pool.Release(args)

	for i := range ctor.Params {
		v, err := resolveValue(&ctor.Params[i], r, overrides)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	results := ctor.fn.Call(args)
	if ctor.returnsErr && !results[1].IsNil() {
		return nil, &InvocationError{
			Target: t.String(),
			Phase:  PhaseConstructor,
			Err:    results[1].Interface().(error),
		}
	}
	return results[0].Interface(), nil
}
