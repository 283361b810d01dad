package solver

import (
	"context"
	"fmt"
)

// DefaultMaxVariables bounds the instances the exhaustive solver accepts.
const DefaultMaxVariables = 32

// Exhaustive is a deterministic depth-first branch and bound over every
// variable. Variables are tried false before true, so among optimal
// assignments the lexicographically smallest one wins. It is meant for small
// instances and for checking encodings independently of a production solver.
type Exhaustive struct {
	MaxVariables int
}

// NewExhaustive returns an exhaustive solver accepting up to maxVars
// variables. A non-positive limit selects DefaultMaxVariables.
func NewExhaustive(maxVars int) *Exhaustive {
	if maxVars <= 0 {
		maxVars = DefaultMaxVariables
	}
	return &Exhaustive{MaxVariables: maxVars}
}

// Solve implements Solver. When ctx ends after a model was found, the best one
// so far is returned with Optimal unset.
func (e *Exhaustive) Solve(ctx context.Context, f Formula) (Result, error) {
	if err := f.Validate(); err != nil {
		return Result{}, err
	}
	limit := e.MaxVariables
	if limit <= 0 {
		limit = DefaultMaxVariables
	}
	if f.Variables > limit {
		return Result{}, fmt.Errorf("%w: %d variables, limit %d", ErrTooLarge, f.Variables, limit)
	}

	n := f.Variables
	// Each clause is checked at the depth of its highest variable.
	hardAt := make([][]int, n+1)
	for i, c := range f.Hard {
		hardAt[maxVar(c)] = append(hardAt[maxVar(c)], i)
	}
	softAt := make([][]int, n+1)
	for i, s := range f.Soft {
		softAt[maxVar(s.Clause)] = append(softAt[maxVar(s.Clause)], i)
	}

	assign := make([]bool, n+1)
	var best []bool
	bestCost := -1
	steps := 0

	var dfs func(v, cost int) error
	dfs = func(v, cost int) error {
		steps++
		if steps%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if v > n {
			if bestCost < 0 || cost < bestCost {
				bestCost = cost
				best = append([]bool(nil), assign...)
			}
			return nil
		}
		for _, val := range [2]bool{false, true} {
			assign[v] = val
			if !clausesHold(f.Hard, hardAt[v], assign) {
				continue
			}
			c := cost
			for _, i := range softAt[v] {
				if !f.Soft[i].Clause.Satisfied(assign) {
					c += f.Soft[i].Weight
				}
			}
			if bestCost >= 0 && c >= bestCost {
				continue
			}
			if err := dfs(v+1, c); err != nil {
				return err
			}
		}
		assign[v] = false
		return nil
	}

	if err := dfs(1, 0); err != nil {
		if bestCost >= 0 {
			return Result{Assignment: best, Cost: bestCost}, nil
		}
		return Result{}, fmt.Errorf("%w: %v", ErrInterrupted, err)
	}
	if bestCost < 0 {
		return Result{}, ErrUnsatisfiable
	}
	return Result{Assignment: best, Cost: bestCost, Optimal: true}, nil
}

func clausesHold(clauses []Clause, idx []int, assign []bool) bool {
	for _, i := range idx {
		if !clauses[i].Satisfied(assign) {
			return false
		}
	}
	return true
}

func maxVar(c Clause) int {
	m := 0
	for _, l := range c {
		if v := l.Var(); v > m {
			m = v
		}
	}
	return m
}
