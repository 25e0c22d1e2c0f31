package rowan

import (
	"errors"
	"fmt"
	"reflect"
)

// ---------------------------------------------------------------------------
// resolver test double
// ---------------------------------------------------------------------------

// fakeResolver is a flat map-backed Resolver. Unlike Registry it never
// falls back to its parent on ordinary resolution, which keeps the
// fromParent tests unambiguous: a value visible through Parent() is
// invisible locally.
type fakeResolver struct {
	values map[reflect.Type]any
	keyed  map[string]any
	parent *fakeResolver
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{
		values: make(map[reflect.Type]any),
		keyed:  make(map[string]any),
	}
}

func (f *fakeResolver) set(v any) *fakeResolver {
	f.values[reflect.TypeOf(v)] = v
	return f
}

func (f *fakeResolver) setKeyed(key string, v any) *fakeResolver {
	f.keyed[key] = v
	return f
}

// child creates a scope whose Parent() is f. The child starts empty.
func (f *fakeResolver) child() *fakeResolver {
	c := newFakeResolver()
	c.parent = f
	return c
}

func (f *fakeResolver) Resolve(t reflect.Type) (any, error) {
	if v, ok := f.values[t]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNotRegistered, t)
}

func (f *fakeResolver) TryResolve(t reflect.Type) (any, bool) {
	v, ok := f.values[t]
	return v, ok
}

func (f *fakeResolver) ResolveKeyed(t reflect.Type, key string) (any, error) {
	if v, ok := f.keyed[key]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%w: key %q", ErrNotRegistered, key)
}

func (f *fakeResolver) Parent() Resolver {
	if f.parent == nil {
		return nil
	}
	return f.parent
}

// badOverride claims every slot but supplies a value of the wrong type.
type badOverride struct{}

func (badOverride) CanSupply(reflect.Type, string) bool { return true }
func (badOverride) Supply(reflect.Type, string) any     { return struct{ X int }{} }

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// ---------------------------------------------------------------------------
// shared fixtures
// ---------------------------------------------------------------------------

type testLogger struct{ Prefix string }

type testConfig struct{ DSN string }

type testDatabase struct {
	Log *testLogger
	Cfg *testConfig
}

func newTestDatabase(log *testLogger, cfg *testConfig) *testDatabase {
	return &testDatabase{Log: log, Cfg: cfg}
}

// testWorker exercises the field tag grammar.
type testWorker struct {
	Log *testLogger   `inject:""`
	Cfg *testConfig   `inject:"optional"`
	DB  *testDatabase `inject:"key=primary"`
}

// testBase / testDerived exercise embedded-member traversal.
type testBase struct {
	Logger *testLogger `inject:""`
}

type testDerived struct {
	testBase
	Config *testConfig `inject:""`
}

// testPtrDerived embeds through a pointer, which may be nil at inject time.
type testPtrDerived struct {
	*testBase
	Config *testConfig `inject:""`
}

// testShadowed redeclares a member its embedded type also carries.
type testShadowBase struct {
	Name *testLogger `inject:"key=base"`
}

type testShadowed struct {
	testShadowBase
	Name *testLogger `inject:"key=own"`
}

// testServer exercises setter injection.
type testServer struct {
	logger *testLogger
	db     *testDatabase
}

func (s *testServer) SetLogger(l *testLogger) { s.logger = l }

func (s *testServer) SetDB(db *testDatabase) error {
	if db == nil {
		return errors.New("nil database")
	}
	s.db = db
	return nil
}

// statusError implements error with a concrete struct kind, so it can
// never be nil-checked through reflection.
type statusError struct{}

func (statusError) Error() string { return "status" }

// testSequencer records injection-method invocation order.
type testSequencer struct{ calls []string }

func (s *testSequencer) Alpha()   { s.calls = append(s.calls, "alpha") }
func (s *testSequencer) Bravo()   { s.calls = append(s.calls, "bravo") }
func (s *testSequencer) Charlie() { s.calls = append(s.calls, "charlie") }

// testService exercises the full lifecycle: constructor, optional setter,
// keyed injection method.
type testX struct{ ID string }
type testY struct{ ID string }
type testZ struct{ ID string }

type testService struct {
	x       *testX
	retries int
	y       *testY
	z       *testZ
}

func newTestService(x *testX, retries int) *testService {
	return &testService{x: x, retries: retries}
}

func (s *testService) SetY(y *testY) { s.y = y }

func (s *testService) Connect(z *testZ) error {
	if z == nil {
		return errors.New("nil connection target")
	}
	s.z = z
	return nil
}
