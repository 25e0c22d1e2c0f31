package rowan

import (
	"fmt"
	"reflect"

	"go.uber.org/zap"
)

// Engine drives cached injection metadata through the injectors. Use [New]
// to create one.
//
// A zero-configured engine owns a private annotations registry, metadata
// cache, and buffer pool; share them between engines with [WithCache] and
// [WithPool]. Engines are safe for concurrent use once their annotations
// are declared.
type Engine struct {
	cache *Cache
	pool  *BufferPool
	log   *zap.Logger
}

// New creates an [Engine].
func New(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewCache(NewAnnotations())
	}
	if e.pool == nil {
		e.pool = NewBufferPool()
	}
	if e.log == nil {
		e.log = zap.NewNop()
	}
	return e
}

// Describe declares injection facts for the prototype's type through the
// engine's cache. See [Annotations.Describe].
func (e *Engine) Describe(prototype any) *TypeSpec {
	return e.cache.Annotations().Describe(prototype)
}

// Cache exposes the engine's metadata cache.
func (e *Engine) Cache() *Cache { return e.cache }

// Pool exposes the engine's argument-buffer pool.
func (e *Engine) Pool() *BufferPool { return e.pool }

// CreateInstance builds a new instance of t: metadata lookup, constructor
// selection, parameter resolution, invocation. Prefer the generic [Create]
// helper over calling this method directly.
func (e *Engine) CreateInstance(t reflect.Type, r Resolver, overrides ...Override) (any, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: creating %s", ErrNilResolver, t)
	}

	md, err := e.cache.GetOrCreate(t)
	if err != nil {
		return nil, err
	}

	instance, err := newInstance(t, md.Ctor, r, overrides, e.pool)
	if err != nil {
		return nil, err
	}

	e.log.Debug("created instance", zap.Stringer("type", t))
	return instance, nil
}

// InjectAll populates every injection point of an existing instance, in
// the order fields, setters, methods. Members injected before a later
// failure stay injected; partial work is not rolled back.
func (e *Engine) InjectAll(instance any, r Resolver, overrides ...Override) error {
	if instance == nil {
		return fmt.Errorf("%w: inject target", ErrNilInstance)
	}
	if r == nil {
		return fmt.Errorf("%w: injecting %T", ErrNilResolver, instance)
	}

	t := reflect.TypeOf(instance)
	md, err := e.cache.GetOrCreate(t)
	if err != nil {
		return err
	}

	if err := injectMembers(t, instance, md.Fields, PhaseFields, r, overrides); err != nil {
		return err
	}
	if err := injectMembers(t, instance, md.Setters, PhaseSetters, r, overrides); err != nil {
		return err
	}
	if err := injectMethods(t, instance, md.Methods, r, overrides, e.pool); err != nil {
		return err
	}

	e.log.Debug("injected instance",
		zap.Stringer("type", t),
		zap.Int("fields", len(md.Fields)),
		zap.Int("setters", len(md.Setters)),
		zap.Int("methods", len(md.Methods)),
	)
	return nil
}

// Assemble is [Engine.CreateInstance] followed by [Engine.InjectAll] on
// the new instance.
func (e *Engine) Assemble(t reflect.Type, r Resolver, overrides ...Override) (any, error) {
	instance, err := e.CreateInstance(t, r, overrides...)
	if err != nil {
		return nil, err
	}
	if err := e.InjectAll(instance, r, overrides...); err != nil {
		return nil, err
	}
	return instance, nil
}

// Create is a generic helper that builds a typed instance:
//
//	db, err := rowan.Create[*Database](eng, reg)
func Create[T any](e *Engine, r Resolver, overrides ...Override) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()

	v, err := e.CreateInstance(t, r, overrides...)
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cannot convert %T to %s", v, t)
	}
	return out, nil
}

// Assemble is a generic helper that builds and fully injects a typed
// instance:
//
//	svc, err := rowan.Assemble[*Service](eng, reg)
func Assemble[T any](e *Engine, r Resolver, overrides ...Override) (T, error) {
	var zero T
	t := reflect.TypeOf((*T)(nil)).Elem()

	v, err := e.Assemble(t, r, overrides...)
	if err != nil {
		return zero, err
	}

	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cannot convert %T to %s", v, t)
	}
	return out, nil
}
