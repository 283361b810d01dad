package solver

import (
	"fmt"
	"strings"
)

// Lit is a DIMACS literal: +v for variable v, -v for its negation. Variables
// are numbered from 1.
type Lit int

// Var returns the variable index of l.
func (l Lit) Var() int {
	if l < 0 {
		return int(-l)
	}
	return int(l)
}

// Neg returns the negated literal.
func (l Lit) Neg() Lit { return -l }

// Positive reports whether l is a non-negated literal.
func (l Lit) Positive() bool { return l > 0 }

// Clause is a disjunction of literals.
type Clause []Lit

// Satisfied reports whether the clause holds under assignment, indexed by
// variable (index 0 unused).
func (c Clause) Satisfied(assignment []bool) bool {
	for _, l := range c {
		v := l.Var()
		if v >= len(assignment) {
			continue
		}
		if assignment[v] == l.Positive() {
			return true
		}
	}
	return false
}

func (c Clause) String() string {
	parts := make([]string, len(c))
	for i, l := range c {
		parts[i] = fmt.Sprint(int(l))
	}
	return "(" + strings.Join(parts, " ∨ ") + ")"
}

// Soft is a clause whose violation costs Weight.
type Soft struct {
	Clause Clause
	Weight int
}

// Formula is a weighted partial MaxSAT instance.
type Formula struct {
	Variables int
	Hard      []Clause
	Soft      []Soft
}

// NewVar allocates a fresh variable and returns its positive literal.
func (f *Formula) NewVar() Lit {
	f.Variables++
	return Lit(f.Variables)
}

// AddHard appends a hard clause.
func (f *Formula) AddHard(lits ...Lit) {
	f.Hard = append(f.Hard, Clause(lits))
}

// AddSoft appends a soft clause with the given weight.
func (f *Formula) AddSoft(weight int, lits ...Lit) {
	f.Soft = append(f.Soft, Soft{Clause: Clause(lits), Weight: weight})
}

// Validate checks literal ranges and weights.
func (f Formula) Validate() error {
	check := func(c Clause, kind string, i int) error {
		if len(c) == 0 {
			return fmt.Errorf("%s clause %d is empty", kind, i)
		}
		for _, l := range c {
			if l == 0 || l.Var() > f.Variables {
				return fmt.Errorf("%s clause %d: literal %d out of range 1..%d", kind, i, l, f.Variables)
			}
		}
		return nil
	}
	for i, c := range f.Hard {
		if err := check(c, "hard", i); err != nil {
			return err
		}
	}
	for i, s := range f.Soft {
		if err := check(s.Clause, "soft", i); err != nil {
			return err
		}
		if s.Weight < 0 {
			return fmt.Errorf("soft clause %d has negative weight %d", i, s.Weight)
		}
	}
	return nil
}

// HardSatisfied reports whether every hard clause holds under assignment.
// The index of the first violated clause is returned otherwise.
func (f Formula) HardSatisfied(assignment []bool) (int, bool) {
	for i, c := range f.Hard {
		if !c.Satisfied(assignment) {
			return i, false
		}
	}
	return -1, true
}

// Cost sums the weights of soft clauses violated by assignment.
func (f Formula) Cost(assignment []bool) int {
	cost := 0
	for _, s := range f.Soft {
		if !s.Clause.Satisfied(assignment) {
			cost += s.Weight
		}
	}
	return cost
}

// Result is a solver answer: an assignment indexed by variable (index 0
// unused), its total soft cost and whether optimality was proven.
type Result struct {
	Assignment []bool
	Cost       int
	Optimal    bool
}

// True returns the positive literals of the assignment.
func (r Result) True() []Lit {
	var out []Lit
	for v := 1; v < len(r.Assignment); v++ {
		if r.Assignment[v] {
			out = append(out, Lit(v))
		}
	}
	return out
}
