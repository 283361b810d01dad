// Package solver defines the weighted boolean formula handed to a MaxSAT
// solver and the contract solvers implement. The search itself lives behind
// the Solver interface so the encoder never depends on a particular backend.
package solver

import (
	"context"
	"errors"
)

// ErrUnsatisfiable is returned when the hard clauses admit no assignment.
var ErrUnsatisfiable = errors.New("formula unsatisfiable")

// ErrTooLarge is returned by solvers that refuse instances above their limits.
var ErrTooLarge = errors.New("formula too large for solver")

// ErrInterrupted is returned when ctx ends before any model was found.
// The wrapped error carries the context cause.
var ErrInterrupted = errors.New("solver interrupted")

// Solver finds an assignment satisfying every hard clause that minimises the
// weight of violated soft clauses.
type Solver interface {
	Solve(ctx context.Context, f Formula) (Result, error)
}

// Func adapts a plain function to the Solver interface.
type Func func(ctx context.Context, f Formula) (Result, error)

// Solve calls fn.
func (fn Func) Solve(ctx context.Context, f Formula) (Result, error) { return fn(ctx, f) }
