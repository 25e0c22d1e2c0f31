package rowan

import (
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// defaultTagName is the struct tag the metadata builder reads field facts
// from. Override per cache with [WithTagName].
const defaultTagName = "inject"

// Annotations is the fact front end the [Cache] reads: per-type
// constructor candidates, setters, and injection methods declared through
// [Annotations.Describe]. Field facts come from the struct tag grammar
// instead (see the package documentation).
//
// The facts are plain booleans, strings, and ints. How a project produces
// them — these builders, code generation, configuration — is irrelevant to
// the resolution algorithm.
type Annotations struct {
	mu    sync.RWMutex
	specs map[reflect.Type]*TypeSpec
}

// NewAnnotations creates an empty annotations registry.
func NewAnnotations() *Annotations {
	return &Annotations{specs: make(map[reflect.Type]*TypeSpec)}
}

// Describe returns the [TypeSpec] for the prototype's type, creating it on
// first use. The prototype value itself is discarded; only its type
// matters:
//
//	ann.Describe(&Database{}).Constructor(NewDatabase, rowan.Param("cfg"))
func (a *Annotations) Describe(prototype any) *TypeSpec {
	t := reflect.TypeOf(prototype)

	a.mu.Lock()
	defer a.mu.Unlock()

	s, ok := a.specs[t]
	if !ok {
		s = &TypeSpec{typ: t}
		a.specs[t] = s
	}
	return s
}

// spec returns the registered TypeSpec for t, if any.
func (a *Annotations) spec(t reflect.Type) (*TypeSpec, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	s, ok := a.specs[t]
	return s, ok
}

// TypeSpec accumulates the injection facts for one type. Builders are not
// safe for concurrent use; declare specs up front, before the type's
// metadata is first requested.
type TypeSpec struct {
	typ     reflect.Type
	ctors   []ctorSpec
	setters []setterSpec
	methods []methodSpec
}

type ctorSpec struct {
	fn     any
	params []*Arg
	marked bool
}

type setterSpec struct {
	name  string
	param *Arg
}

type methodSpec struct {
	name   string
	order  int
	params []*Arg
}

// Constructor declares a candidate constructor function with optional
// per-parameter facts. fn must have the signature func(deps...) T or
// func(deps...) (T, error), with T assignable to the described type.
func (s *TypeSpec) Constructor(fn any, params ...*Arg) *TypeSpec {
	s.ctors = append(s.ctors, ctorSpec{fn: fn, params: params})
	return s
}

// InjectConstructor declares a candidate and marks it as the explicitly
// chosen constructor. The first marked candidate wins selection regardless
// of arity.
func (s *TypeSpec) InjectConstructor(fn any, params ...*Arg) *TypeSpec {
	s.ctors = append(s.ctors, ctorSpec{fn: fn, params: params, marked: true})
	return s
}

// Setter declares a property-style injection point: a method taking
// exactly one parameter, e.g. SetLogger(*Logger). At most one Arg applies;
// omit it for a plain required slot.
func (s *TypeSpec) Setter(method string, param ...*Arg) *TypeSpec {
	ss := setterSpec{name: method}
	if len(param) > 0 {
		ss.param = param[0]
	}
	s.setters = append(s.setters, ss)
	return s
}

// Method declares an injection method invoked during InjectAll. Methods
// run ascending by order; ties keep declaration order.
func (s *TypeSpec) Method(method string, order int, params ...*Arg) *TypeSpec {
	s.methods = append(s.methods, methodSpec{name: method, order: order, params: params})
	return s
}

// Arg carries the injection facts for a single parameter. Build one with
// [Param] and chain the modifiers.
type Arg struct {
	name       string
	optional   bool
	key        string
	fromParent bool
	hasDefault bool
	def        any
}

// Param starts the facts for one parameter. The name is used for override
// matching and error messages; it does not need to match the Go source
// name.
func Param(name string) *Arg { return &Arg{name: name} }

// Optional marks the parameter as satisfiable by its zero value when
// nothing is registered.
func (a *Arg) Optional() *Arg {
	a.optional = true
	return a
}

// Keyed makes the parameter resolve through a keyed lookup.
func (a *Arg) Keyed(key string) *Arg {
	a.key = key
	return a
}

// FromParent makes the parameter resolve through the parent scope instead
// of the current resolver.
func (a *Arg) FromParent() *Arg {
	a.fromParent = true
	return a
}

// Default sets an explicit fallback value, implying optional semantics.
func (a *Arg) Default(v any) *Arg {
	a.hasDefault = true
	a.def = v
	return a
}

// parseTag parses the inject tag grammar:
//
//	inject:""              required, ordinary resolution
//	inject:"optional"      zero value when unresolved
//	inject:"key=primary"   keyed lookup
//	inject:"parent"        resolve through the parent scope
//
// Tokens combine comma-separated: inject:"optional,key=primary".
func parseTag(tag string) (Arg, error) {
	var facts Arg
	if tag == "" {
		return facts, nil
	}
	for _, tok := range strings.Split(tag, ",") {
		tok = strings.TrimSpace(tok)
		switch {
		case tok == "":
		case tok == "optional":
			facts.optional = true
		case tok == "parent":
			facts.fromParent = true
		case strings.HasPrefix(tok, "key="):
			facts.key = strings.TrimPrefix(tok, "key=")
		default:
			return Arg{}, fmt.Errorf("unknown inject tag token %q", tok)
		}
	}
	return facts, nil
}
