package rowan

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Registry is a reference [Resolver]: typed values, constructor providers,
// keyed entries, and child scopes. It exists so the engine runs and tests
// without a full container; registration semantics beyond this — graph
// validation, lifetimes — belong to the container, not the engine.
//
// Values registered with RegisterValue are shared; providers registered
// with RegisterProvider run on every resolution. Lookups check the current
// scope first and then fall back through the parent chain.
type Registry struct {
	parent *Registry

	mu        sync.RWMutex
	values    map[reflect.Type]any
	providers map[reflect.Type]providerEntry
	keyed     map[string]keyedEntry
}

// providerEntry holds one registered constructor function.
type providerEntry struct {
	fn         reflect.Value
	returnsErr bool
}

type keyedEntry struct {
	value   any
	outType reflect.Type
}

// NewRegistry creates an empty root registry.
func NewRegistry() *Registry {
	return &Registry{
		values:    make(map[reflect.Type]any),
		providers: make(map[reflect.Type]providerEntry),
		keyed:     make(map[string]keyedEntry),
	}
}

// Child creates a scope whose lookups fall back to this registry.
// Registrations on the child never modify the parent.
func (r *Registry) Child() *Registry {
	c := NewRegistry()
	c.parent = r
	return c
}

// Parent implements [Resolver]. It returns nil at the root.
func (r *Registry) Parent() Resolver {
	if r.parent == nil {
		return nil
	}
	return r.parent
}

// RegisterValue stores v under its dynamic type.
func (r *Registry) RegisterValue(v any) error {
	if v == nil {
		return errors.New("value cannot be nil")
	}
	t := reflect.TypeOf(v)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.values[t]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, t)
	}
	r.values[t] = v
	return nil
}

// RegisterValueAs stores v under the type T, which may be an interface v
// implements:
//
//	rowan.RegisterValueAs[Queue](reg, memQueue)
func RegisterValueAs[T any](r *Registry, v T) error {
	t := reflect.TypeOf((*T)(nil)).Elem()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.values[t]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, t)
	}
	r.values[t] = v
	return nil
}

// RegisterProvider adds a constructor function with the signature
// func(deps...) T or func(deps...) (T, error). Dependencies are expressed
// as function parameters and resolved by type through the registry, parent
// chain included. The provider runs on every resolution of T.
func (r *Registry) RegisterProvider(constructor any) error {
	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return errors.New("provider must be a function")
	}
	if typ.IsVariadic() {
		return errors.New("provider must not be variadic")
	}
	if typ.NumOut() == 0 || typ.NumOut() > 2 {
		return errors.New("provider must return (T) or (T, error)")
	}
	returnsErr := false
	if typ.NumOut() == 2 {
		if typ.Out(1).Kind() != reflect.Interface || !typ.Out(1).Implements(errorType) {
			return errors.New("second return value must be an error interface")
		}
		returnsErr = true
	}

	outType := typ.Out(0)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.providers[outType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEntry, outType)
	}
	r.providers[outType] = providerEntry{fn: val, returnsErr: returnsErr}
	return nil
}

// RegisterKeyed stores v under a string key. Keyed entries live in a
// separate namespace and are resolved via [Registry.ResolveKeyed]; the
// requested type must be assignable from the stored value's type.
func (r *Registry) RegisterKeyed(key string, v any) error {
	if key == "" {
		return errors.New("key cannot be empty")
	}
	if v == nil {
		return errors.New("value cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.keyed[key]; exists {
		return fmt.Errorf("%w: key %q", ErrDuplicateEntry, key)
	}
	r.keyed[key] = keyedEntry{value: v, outType: reflect.TypeOf(v)}
	return nil
}

// ---------------------------------------------------------------------------
// Resolver implementation
// ---------------------------------------------------------------------------

// Resolve implements [Resolver].
func (r *Registry) Resolve(t reflect.Type) (any, error) {
	v, found, err := r.lookup(t)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, t)
	}
	return v, nil
}

// TryResolve implements [Resolver]. Provider failures read as absence.
func (r *Registry) TryResolve(t reflect.Type) (any, bool) {
	v, found, err := r.lookup(t)
	if err != nil || !found {
		return nil, false
	}
	return v, true
}

// ResolveKeyed implements [Resolver].
func (r *Registry) ResolveKeyed(t reflect.Type, key string) (any, error) {
	r.mu.RLock()
	e, ok := r.keyed[key]
	r.mu.RUnlock()

	if !ok {
		if r.parent != nil {
			return r.parent.ResolveKeyed(t, key)
		}
		return nil, fmt.Errorf("%w: key %q", ErrNotRegistered, key)
	}
	if !e.outType.AssignableTo(t) {
		return nil, fmt.Errorf("keyed entry %q holds %s, not assignable to %s", key, e.outType, t)
	}
	return e.value, nil
}

// lookup checks this scope's values, then its providers, then the parent
// chain. found distinguishes absence from a provider failure.
func (r *Registry) lookup(t reflect.Type) (v any, found bool, err error) {
	r.mu.RLock()
	if v, ok := r.values[t]; ok {
		r.mu.RUnlock()
		return v, true, nil
	}
	p, ok := r.providers[t]
	r.mu.RUnlock()

	if ok {
		v, err := r.construct(p)
		if err != nil {
			return nil, true, err
		}
		return v, true, nil
	}

	if r.parent != nil {
		return r.parent.lookup(t)
	}
	return nil, false, nil
}

// construct invokes a provider, resolving its parameters through the
// registry first. Providers only read registry state, so recursion under
// the read path is safe.
func (r *Registry) construct(p providerEntry) (any, error) {
	ft := p.fn.Type()
	args := make([]reflect.Value, ft.NumIn())

	for i := 0; i < ft.NumIn(); i++ {
		dep, err := r.Resolve(ft.In(i))
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", ft.In(i), err)
		}
		args[i] = toArg(dep, ft.In(i))
	}

	results := p.fn.Call(args)
	if p.returnsErr && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

// toArg wraps a resolved dependency for a call slot, boxing concrete
// values into interface parameters when needed.
func toArg(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	rv := reflect.ValueOf(v)
	if rv.Type() != t {
		out := reflect.New(t).Elem()
		out.Set(rv)
		return out
	}
	return rv
}
