package rowan

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInjectFields(t *testing.T) {
	logger := &testLogger{Prefix: "app"}
	cfg := &testConfig{DSN: "postgres://localhost"}
	db := &testDatabase{}

	fieldsOf := func(t *testing.T, typ any) (md *Metadata) {
		t.Helper()
		md, err := NewCache(NewAnnotations()).GetOrCreate(reflect.TypeOf(typ))
		require.NoError(t, err)
		return md
	}

	t.Run("writes tagged fields", func(t *testing.T) {
		md := fieldsOf(t, &testWorker{})
		r := newFakeResolver().set(logger).set(cfg).setKeyed("primary", db)

		w := &testWorker{}
		require.NoError(t, injectMembers(md.Type, w, md.Fields, PhaseFields, r, nil))

		assert.Same(t, logger, w.Log)
		assert.Same(t, cfg, w.Cfg)
		assert.Same(t, db, w.DB)
	})

	t.Run("writes embedded members through the index path", func(t *testing.T) {
		md := fieldsOf(t, &testDerived{})
		r := newFakeResolver().set(logger).set(cfg)

		d := &testDerived{}
		require.NoError(t, injectMembers(md.Type, d, md.Fields, PhaseFields, r, nil))

		assert.Same(t, cfg, d.Config)
		assert.Same(t, logger, d.Logger)
	})

	t.Run("nil embedded pointer fails the write", func(t *testing.T) {
		md := fieldsOf(t, &testPtrDerived{})
		r := newFakeResolver().set(logger).set(cfg)

		err := injectMembers(md.Type, &testPtrDerived{}, md.Fields, PhaseFields, r, nil)
		var inv *InvocationError
		require.ErrorAs(t, err, &inv)
		assert.Equal(t, PhaseFields, inv.Phase)
		assert.Equal(t, "Logger", inv.Member)
	})

	t.Run("allocated embedded pointer is written through", func(t *testing.T) {
		md := fieldsOf(t, &testPtrDerived{})
		r := newFakeResolver().set(logger).set(cfg)

		d := &testPtrDerived{testBase: &testBase{}}
		require.NoError(t, injectMembers(md.Type, d, md.Fields, PhaseFields, r, nil))
		assert.Same(t, logger, d.Logger)
	})

	t.Run("optional member keeps its value on a zero resolution", func(t *testing.T) {
		md := fieldsOf(t, &testWorker{})
		// Cfg is optional and unregistered; the keyed DB entry is present.
		r := newFakeResolver().set(logger).setKeyed("primary", db)

		kept := &testConfig{DSN: "preset"}
		w := &testWorker{Cfg: kept}
		require.NoError(t, injectMembers(md.Type, w, md.Fields, PhaseFields, r, nil))

		assert.Same(t, kept, w.Cfg)
	})

	t.Run("required member failure stops the pass", func(t *testing.T) {
		md := fieldsOf(t, &testWorker{})
		// Log resolves, the keyed DB entry is missing.
		r := newFakeResolver().set(logger).set(cfg)

		w := &testWorker{}
		err := injectMembers(md.Type, w, md.Fields, PhaseFields, r, nil)
		assert.ErrorIs(t, err, ErrNotRegistered)

		// Members injected before the failure stay injected.
		assert.Same(t, logger, w.Log)
	})

	t.Run("value instance is not settable", func(t *testing.T) {
		md := fieldsOf(t, testWorker{})
		r := newFakeResolver().set(logger).set(cfg).setKeyed("primary", db)

		err := injectMembers(md.Type, testWorker{}, md.Fields, PhaseFields, r, nil)
		var inv *InvocationError
		require.ErrorAs(t, err, &inv)
		assert.ErrorContains(t, err, "not settable")
	})

	t.Run("nil instance and nil resolver are rejected", func(t *testing.T) {
		md := fieldsOf(t, &testWorker{})
		r := newFakeResolver()

		assert.ErrorIs(t, injectMembers(md.Type, nil, md.Fields, PhaseFields, r, nil), ErrNilInstance)
		assert.ErrorIs(t, injectMembers(md.Type, &testWorker{}, md.Fields, PhaseFields, nil, nil), ErrNilResolver)
	})

	t.Run("empty member set needs neither instance nor resolver", func(t *testing.T) {
		assert.NoError(t, injectMembers(typeOf[*testWorker](), nil, nil, PhaseFields, nil, nil))
	})
}

func TestInjectSetters(t *testing.T) {
	logger := &testLogger{Prefix: "app"}
	db := &testDatabase{}

	settersOf := func(t *testing.T, declare func(*TypeSpec)) *Metadata {
		t.Helper()
		ann := NewAnnotations()
		declare(ann.Describe(&testServer{}))
		md, err := NewCache(ann).GetOrCreate(typeOf[*testServer]())
		require.NoError(t, err)
		return md
	}

	t.Run("invokes declared setters", func(t *testing.T) {
		md := settersOf(t, func(s *TypeSpec) {
			s.Setter("SetLogger").Setter("SetDB")
		})
		r := newFakeResolver().set(logger).set(db)

		srv := &testServer{}
		require.NoError(t, injectMembers(md.Type, srv, md.Setters, PhaseSetters, r, nil))

		assert.Same(t, logger, srv.logger)
		assert.Same(t, db, srv.db)
	})

	t.Run("setter error is wrapped with member and phase", func(t *testing.T) {
		md := settersOf(t, func(s *TypeSpec) {
			// SetDB rejects nil; WithValue supplies a typed nil to force it.
			s.Setter("SetDB", Param("db"))
		})
		r := newFakeResolver().set(db)

		var nilDB *testDatabase
		err := injectMembers(md.Type, &testServer{}, md.Setters, PhaseSetters, r, []Override{WithNamed("db", nilDB)})

		var inv *InvocationError
		require.ErrorAs(t, err, &inv)
		assert.Equal(t, PhaseSetters, inv.Phase)
		assert.Equal(t, "db", inv.Member)
		assert.ErrorContains(t, err, "nil database")
	})

	t.Run("declared default applies to a setter on a miss", func(t *testing.T) {
		md := settersOf(t, func(s *TypeSpec) {
			s.Setter("SetLogger", Param("log").Default(&testLogger{Prefix: "fallback"}))
		})

		srv := &testServer{}
		require.NoError(t, injectMembers(md.Type, srv, md.Setters, PhaseSetters, newFakeResolver(), nil))
		require.NotNil(t, srv.logger)
		assert.Equal(t, "fallback", srv.logger.Prefix)
	})

	t.Run("optional setter is skipped on a zero resolution", func(t *testing.T) {
		md := settersOf(t, func(s *TypeSpec) {
			// SetDB would fail on nil, so skipping must mean it never ran.
			s.Setter("SetDB", Param("db").Optional())
		})
		r := newFakeResolver()

		srv := &testServer{}
		require.NoError(t, injectMembers(md.Type, srv, md.Setters, PhaseSetters, r, nil))
		assert.Nil(t, srv.db)
	})
}
