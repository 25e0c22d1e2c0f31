package rowan

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache builds and stores one [Metadata] per type.
//
// GetOrCreate is safe under concurrent calls for the same type: the build
// runs at most once and every caller observes the same published value,
// while builds for unrelated types never block each other. Failed builds
// are not cached, so a corrected annotation set can be retried.
//
// The cache carries no hidden global state; construct one explicitly and
// share it between engines with [WithCache]. Clear releases everything at
// teardown.
type Cache struct {
	annotations *Annotations
	tagName     string

	group singleflight.Group

	mu    sync.RWMutex
	types map[reflect.Type]*Metadata
}

// CacheOption configures a Cache during construction.
type CacheOption func(*Cache)

// WithTagName changes the struct tag the builder reads field facts from.
// The default is "inject".
func WithTagName(name string) CacheOption {
	return func(c *Cache) {
		if name != "" {
			c.tagName = name
		}
	}
}

// NewCache creates an empty cache reading facts from ann. A nil ann is
// valid; only struct-tag field facts apply then.
func NewCache(ann *Annotations, opts ...CacheOption) *Cache {
	if ann == nil {
		ann = NewAnnotations()
	}
	c := &Cache{
		annotations: ann,
		tagName:     defaultTagName,
		types:       make(map[reflect.Type]*Metadata),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Annotations returns the fact registry the cache reads from.
func (c *Cache) Annotations() *Annotations { return c.annotations }

// GetOrCreate returns the metadata for t, building it on first use.
func (c *Cache) GetOrCreate(t reflect.Type) (*Metadata, error) {
	c.mu.RLock()
	md, ok := c.types[t]
	c.mu.RUnlock()
	if ok {
		return md, nil
	}

	// Collapse concurrent first builds of the same type into one flight.
	// The map keyed by the exact reflect.Type stays the source of truth;
	// the string flight key only serializes the build.
	_, err, _ := c.group.Do(flightKey(t), func() (interface{}, error) {
		c.mu.RLock()
		_, ok := c.types[t]
		c.mu.RUnlock()
		if ok {
			return nil, nil
		}

		built, err := c.build(t)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.types[t] = built
		c.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	md = c.types[t]
	c.mu.RUnlock()
	if md != nil {
		return md, nil
	}

	// A distinct type shared our flight key and its closure ran instead.
	// Build directly; the write lock arbitrates publication.
	built, err := c.build(t)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	if existing, ok := c.types[t]; ok {
		built = existing
	} else {
		c.types[t] = built
	}
	c.mu.Unlock()
	return built, nil
}

// TryGet returns cached metadata without building it.
func (c *Cache) TryGet(t reflect.Type) (*Metadata, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	md, ok := c.types[t]
	return md, ok
}

// Remove evicts the metadata for t, reporting whether it was present.
func (c *Cache) Remove(t reflect.Type) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.types[t]
	delete(c.types, t)
	return ok
}

// Clear evicts all cached metadata.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.types = make(map[reflect.Type]*Metadata)
}

// Len reports the number of cached types.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.types)
}

func flightKey(t reflect.Type) string {
	return t.PkgPath() + "\x00" + t.String()
}

// ---------------------------------------------------------------------------
// Metadata construction
// ---------------------------------------------------------------------------

func (c *Cache) build(t reflect.Type) (*Metadata, error) {
	md := &Metadata{Type: t}

	spec, _ := c.annotations.spec(t)

	if spec != nil {
		ctor, err := selectConstructor(t, spec)
		if err != nil {
			return nil, err
		}
		md.Ctor = ctor
	}

	if err := c.collectFields(t, md); err != nil {
		return nil, err
	}

	chain := c.specChain(t, spec)
	setterNames, err := c.collectSetters(t, chain, md)
	if err != nil {
		return nil, err
	}
	if err := c.collectMethods(t, chain, setterNames, md); err != nil {
		return nil, err
	}

	// Ascending by order; SliceStable keeps declaration order on ties.
	sort.SliceStable(md.Methods, func(i, j int) bool {
		return md.Methods[i].Order < md.Methods[j].Order
	})

	return md, nil
}

// selectConstructor applies the documented rule: the first explicitly
// marked candidate wins; otherwise the candidate with the most parameters;
// ties keep the first declared.
func selectConstructor(t reflect.Type, spec *TypeSpec) (*ConstructorDescriptor, error) {
	if len(spec.ctors) == 0 {
		return nil, nil
	}

	fns := make([]reflect.Type, len(spec.ctors))
	for i, cs := range spec.ctors {
		ft := reflect.TypeOf(cs.fn)
		if ft == nil || ft.Kind() != reflect.Func {
			return nil, fmt.Errorf("constructor %d for %s is not a function", i, t)
		}
		fns[i] = ft
	}

	chosen := -1
	for i, cs := range spec.ctors {
		if cs.marked {
			chosen = i
			break
		}
	}
	if chosen < 0 {
		for i := range spec.ctors {
			if chosen < 0 || fns[i].NumIn() > fns[chosen].NumIn() {
				chosen = i
			}
		}
	}

	return buildConstructor(t, spec.ctors[chosen])
}

func buildConstructor(t reflect.Type, cs ctorSpec) (*ConstructorDescriptor, error) {
	fn := reflect.ValueOf(cs.fn)
	ft := fn.Type()

	if ft.NumOut() == 0 || ft.NumOut() > 2 {
		return nil, fmt.Errorf("constructor for %s must return (T) or (T, error)", t)
	}
	returnsErr := false
	if ft.NumOut() == 2 {
		// Interface kind is required, not just error-shaped: IsNil on the
		// returned value panics for concrete kinds.
		if ft.Out(1).Kind() != reflect.Interface || !ft.Out(1).Implements(errorType) {
			return nil, fmt.Errorf("constructor for %s: second return value must be an error interface", t)
		}
		returnsErr = true
	}
	if !ft.Out(0).AssignableTo(t) {
		return nil, fmt.Errorf("constructor for %s returns %s", t, ft.Out(0))
	}

	params, err := buildParams(fmt.Sprintf("constructor for %s", t), ft, 0, cs.params)
	if err != nil {
		return nil, err
	}

	return &ConstructorDescriptor{fn: fn, returnsErr: returnsErr, Params: params}, nil
}

// buildParams merges a function signature with declared per-parameter
// facts, aligned by index. offset skips the receiver for methods.
func buildParams(owner string, ft reflect.Type, offset int, args []*Arg) ([]ParamDescriptor, error) {
	if ft.IsVariadic() {
		return nil, fmt.Errorf("%s: variadic signatures are not supported", owner)
	}
	n := ft.NumIn() - offset
	if len(args) > n {
		return nil, fmt.Errorf("%s: %d parameter facts declared for %d parameters", owner, len(args), n)
	}

	params := make([]ParamDescriptor, n)
	for i := range params {
		d := ParamDescriptor{Type: ft.In(i + offset)}
		if i < len(args) && args[i] != nil {
			a := args[i]
			d.Name = a.name
			d.Optional = a.optional || a.hasDefault
			d.Key = a.key
			d.FromParent = a.fromParent
			d.HasDefault = a.hasDefault
			d.Default = a.def
			if a.hasDefault && a.def != nil && !reflect.TypeOf(a.def).AssignableTo(d.Type) {
				return nil, fmt.Errorf("%s: default for %q is %T, want %s", owner, a.name, a.def, d.Type)
			}
		}
		params[i] = d
	}
	return params, nil
}

// collectFields gathers tagged struct fields: the type's own members
// first, then embedded structs depth-first in declaration order. Promoted
// names already collected at a shallower depth are skipped, mirroring Go's
// shadowing rules.
func (c *Cache) collectFields(t reflect.Type, md *Metadata) error {
	st := structType(t)
	if st == nil {
		return nil
	}
	return c.walkFields(st, nil, make(map[string]bool), md)
}

func (c *Cache) walkFields(st reflect.Type, path []int, seen map[string]bool, md *Metadata) error {
	var embedded []int

	for i := 0; i < st.NumField(); i++ {
		f := st.Field(i)
		if f.Anonymous {
			embedded = append(embedded, i)
			continue
		}

		tag, ok := f.Tag.Lookup(c.tagName)
		if !ok {
			continue
		}
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true

		if !f.IsExported() {
			return fmt.Errorf("inject tag on unexported field %s.%s", st, f.Name)
		}
		facts, err := parseTag(tag)
		if err != nil {
			return fmt.Errorf("field %s.%s: %w", st, f.Name, err)
		}

		idx := make([]int, 0, len(path)+1)
		idx = append(append(idx, path...), i)

		md.Fields = append(md.Fields, MemberDescriptor{
			ParamDescriptor: ParamDescriptor{
				Name:       f.Name,
				Type:       f.Type,
				Optional:   facts.optional,
				Key:        facts.key,
				FromParent: facts.fromParent,
			},
			index:  idx,
			setter: -1,
		})
	}

	for _, i := range embedded {
		ft := st.Field(i).Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Struct {
			continue
		}
		sub := make([]int, 0, len(path)+1)
		sub = append(append(sub, path...), i)
		if err := c.walkFields(ft, sub, seen, md); err != nil {
			return err
		}
	}
	return nil
}

// specChain lists the type's own spec followed by the specs of embedded
// types, depth-first in declaration order. Embedded specs may be
// registered under either the value or the pointer type.
func (c *Cache) specChain(t reflect.Type, own *TypeSpec) []*TypeSpec {
	var chain []*TypeSpec
	if own != nil {
		chain = append(chain, own)
	}

	st := structType(t)
	if st == nil {
		return chain
	}

	var walk func(reflect.Type)
	walk = func(st reflect.Type) {
		for i := 0; i < st.NumField(); i++ {
			f := st.Field(i)
			if !f.Anonymous {
				continue
			}
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() != reflect.Struct {
				continue
			}
			if s, ok := c.annotations.spec(reflect.PointerTo(ft)); ok {
				chain = append(chain, s)
			} else if s, ok := c.annotations.spec(ft); ok {
				chain = append(chain, s)
			}
			walk(ft)
		}
	}
	walk(st)
	return chain
}

// collectSetters resolves declared setters against the instance type's
// method set. A setter name seen at a shallower depth wins over an
// embedded declaration of the same name.
func (c *Cache) collectSetters(t reflect.Type, chain []*TypeSpec, md *Metadata) (map[string]bool, error) {
	seen := make(map[string]bool)

	for _, level := range chain {
		for _, ss := range level.setters {
			if seen[ss.name] {
				continue
			}
			seen[ss.name] = true

			m, ok := t.MethodByName(ss.name)
			if !ok {
				return nil, fmt.Errorf("setter %s is not a method of %s", ss.name, t)
			}
			if m.Type.NumIn() != 2 {
				return nil, fmt.Errorf("setter %s.%s must take exactly one parameter", t, ss.name)
			}
			if m.Type.NumOut() > 1 {
				return nil, fmt.Errorf("setter %s.%s must return nothing or an error", t, ss.name)
			}
			if m.Type.NumOut() == 1 {
				out := m.Type.Out(0)
				if out.Kind() != reflect.Interface || !out.Implements(errorType) {
					return nil, fmt.Errorf("setter %s.%s must return nothing or an error", t, ss.name)
				}
			}

			var args []*Arg
			if ss.param != nil {
				args = []*Arg{ss.param}
			}
			params, err := buildParams(fmt.Sprintf("setter %s.%s", t, ss.name), m.Type, 1, args)
			if err != nil {
				return nil, err
			}

			d := params[0]
			if d.Name == "" {
				d.Name = ss.name
			}

			md.Setters = append(md.Setters, MemberDescriptor{
				ParamDescriptor: d,
				setter:          m.Index,
			})
		}
	}
	return seen, nil
}

// collectMethods resolves declared injection methods against the instance
// type's method set, excluding names already claimed as setters.
func (c *Cache) collectMethods(t reflect.Type, chain []*TypeSpec, setterNames map[string]bool, md *Metadata) error {
	seen := make(map[string]bool)

	for _, level := range chain {
		for _, ms := range level.methods {
			if seen[ms.name] {
				continue
			}
			seen[ms.name] = true

			if setterNames[ms.name] {
				return fmt.Errorf("%s.%s is declared both as setter and injection method", t, ms.name)
			}

			m, ok := t.MethodByName(ms.name)
			if !ok {
				return fmt.Errorf("injection method %s is not a method of %s", ms.name, t)
			}

			params, err := buildParams(fmt.Sprintf("method %s.%s", t, ms.name), m.Type, 1, ms.params)
			if err != nil {
				return err
			}

			md.Methods = append(md.Methods, MethodDescriptor{
				Name:   ms.name,
				Order:  ms.order,
				Params: params,
				index:  m.Index,
			})
		}
	}
	return nil
}

// structType unwraps t to its underlying struct type, or nil when t is not
// a struct or pointer to struct.
func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() == reflect.Struct {
		return t
	}
	return nil
}
