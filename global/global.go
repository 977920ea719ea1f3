// Package global implements a process-wide typed cell: a value not keyed
// by entity that still participates in the scheduler's conflict graph
// exactly like a component.
package global

import "github.com/rotisserie/eris"

// ErrGlobalNotInitialized is a configuration error detected at world
// finalize time: a global with no intrinsic default was never given a
// mandatory initial value. This is fatal, named with the offending
// global.
var ErrGlobalNotInitialized = eris.New("global: value required but never initialized")

// Cell holds a single global value of type T, along with the policy that
// decided its initial value.
type Cell[T any] struct {
	value       T
	initialized bool
	mandatory   bool // true: caller must call Set before first tick
	name        string
}

// NewWithDefault builds a Cell whose initial value is the given default,
// immediately available without further setup.
func NewWithDefault[T any](name string, initial T) *Cell[T] {
	return &Cell[T]{value: initial, initialized: true, name: name}
}

// NewMandatory builds a Cell that has no intrinsic default: Set must be
// called before the first tick, or Validate reports ErrGlobalNotInitialized.
func NewMandatory[T any](name string) *Cell[T] {
	return &Cell[T]{mandatory: true, name: name}
}

// Get returns the current value.
func (c *Cell[T]) Get() T { return c.value }

// Set stores value and marks the cell initialized.
func (c *Cell[T]) Set(value T) {
	c.value = value
	c.initialized = true
}

// Validate is called once at world finalize to enforce the mandatory
// initial-value policy.
func (c *Cell[T]) Validate() error {
	if c.mandatory && !c.initialized {
		return eris.Wrapf(ErrGlobalNotInitialized, "global %q", c.name)
	}
	return nil
}

// Name returns the global's registered name. Scheduler claims on a global
// are keyed by a name string passed to scheduler.GlobalResource, not read
// from the Cell.
func (c *Cell[T]) Name() string { return c.name }
