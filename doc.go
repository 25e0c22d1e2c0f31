// Package rowan is a reflection-based dependency resolution and injection
// engine for Go.
//
// Rowan does not manage registrations or lifetimes — it consumes them
// through the narrow [Resolver] contract. Given a target type and a live
// resolver, the engine introspects the type once into cached injection
// metadata, selects a constructor, instantiates the object, and populates
// its field-, setter-, and method-level injection points.
//
// # Quick Start
//
//	eng := rowan.New()
//	eng.Describe(&Service{}).
//		Constructor(NewService, rowan.Param("db"), rowan.Param("retries").Optional()).
//		Method("Start", 0, rowan.Param("bus").Keyed("events"))
//
//	reg := rowan.NewRegistry()
//	reg.RegisterValue(db)
//	reg.RegisterKeyed("events", bus)
//
//	svc, err := rowan.Assemble[*Service](eng, reg)
//
// # Resolution Order
//
// Every dependency slot — constructor parameter, tagged field, setter, or
// method parameter — resolves through the same chain, first match wins:
//
//  1. an explicit [Override] supplied by the caller
//  2. the parent scope, for slots marked fromParent
//  3. a keyed lookup, for slots carrying a key
//  4. ordinary resolution on the current [Resolver]
//  5. the declared default or zero value, for optional slots
//
// An override beats even a successful keyed lookup; a keyed-but-optional
// miss recovers to the default instead of failing.
//
// # Field Tags
//
// Struct fields opt in with the inject tag:
//
//	type Worker struct {
//		Queue *Queue  `inject:""`
//		Log   *Logger `inject:"optional"`
//		DB    *DB     `inject:"key=primary"`
//		Bus   *Bus    `inject:"parent"`
//	}
//
// Embedded structs are walked like an inheritance chain: a type's own
// members first, then embedded types depth-first in declaration order.
// A promoted name already collected at a shallower depth is skipped.
//
// # Setters and Injection Methods
//
// Setters are single-parameter methods declared with [TypeSpec.Setter];
// they stand in for property injection. Methods declared with
// [TypeSpec.Method] run after field and setter injection, ascending by
// order, declaration order on ties — later methods may rely on the side
// effects of earlier ones.
package rowan
