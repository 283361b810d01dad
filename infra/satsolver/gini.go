// Package satsolver provides the production weighted MaxSAT solver built on
// the gini CDCL SAT solver.
//
// The search is linear SAT-UNSAT: soft clauses are relaxed, a first model is
// found for the hard clauses alone, then each round asks gini for a model
// whose relaxed cost is strictly below the best cost so far. The cost bound is
// encoded as a BDD over the relaxation literals with the logic circuit
// package. The last satisfiable round is optimal once the next one is
// unsatisfiable. A single gini instance serves every round.
package satsolver

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"

	"github.com/kilianp07/gcal-scheduler/core/logger"
	"github.com/kilianp07/gcal-scheduler/core/solver"
)

// DefaultPollInterval is how often a running solve checks its context.
const DefaultPollInterval = 20 * time.Millisecond

// Config tunes the gini solver.
type Config struct {
	PollInterval time.Duration `json:"poll_interval"`
	// MaxRounds caps improvement rounds; zero means unlimited. A capped search
	// returns its best model with Optimal unset.
	MaxRounds int `json:"max_rounds"`
}

// Gini implements solver.Solver.
type Gini struct {
	cfg Config
	log logger.Logger
}

// New returns a gini-backed solver.
func New(cfg Config, log logger.Logger) *Gini {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if log == nil {
		log = logger.Nop{}
	}
	return &Gini{cfg: cfg, log: log}
}

// term is a relaxation literal and the weight paid when it is true.
type term struct {
	lit    solver.Lit
	weight int
}

// relaxed is the formula after relaxing soft clauses.
type relaxed struct {
	vars  int
	hard  []solver.Clause
	terms []term
}

func relax(f solver.Formula) relaxed {
	r := relaxed{vars: f.Variables, hard: f.Hard}
	weights := make(map[solver.Lit]int)
	var order []solver.Lit
	add := func(l solver.Lit, w int) {
		if _, ok := weights[l]; !ok {
			order = append(order, l)
		}
		weights[l] += w
	}
	for _, s := range f.Soft {
		if s.Weight == 0 {
			continue
		}
		if len(s.Clause) == 1 {
			// The clause is violated exactly when its literal is false.
			add(s.Clause[0].Neg(), s.Weight)
			continue
		}
		r.vars++
		v := solver.Lit(r.vars)
		r.hard = append(r.hard, append(append(solver.Clause{}, s.Clause...), v))
		add(v, s.Weight)
	}
	for _, l := range order {
		r.terms = append(r.terms, term{lit: l, weight: weights[l]})
	}
	sort.SliceStable(r.terms, func(i, j int) bool { return r.terms[i].weight > r.terms[j].weight })
	return r
}

// Solve implements solver.Solver.
func (s *Gini) Solve(ctx context.Context, f solver.Formula) (solver.Result, error) {
	if err := f.Validate(); err != nil {
		return solver.Result{}, err
	}
	inc := newIncremental(relax(f))

	model, err := s.round(ctx, inc, -1)
	switch {
	case err != nil:
		return solver.Result{}, fmt.Errorf("%w: %v", solver.ErrInterrupted, err)
	case model == nil:
		return solver.Result{}, solver.ErrUnsatisfiable
	}
	best := model[:f.Variables+1]
	cost := f.Cost(best)
	s.log.Debugf("gini: first model cost %d (%d terms)", cost, len(inc.r.terms))

	for rounds := 1; cost > 0; rounds++ {
		if s.cfg.MaxRounds > 0 && rounds > s.cfg.MaxRounds {
			return solver.Result{Assignment: best, Cost: cost}, nil
		}
		model, err := s.round(ctx, inc, cost-1)
		if err != nil {
			s.log.Debugf("gini: interrupted at bound %d: %v", cost-1, err)
			return solver.Result{Assignment: best, Cost: cost}, nil
		}
		if model == nil {
			break
		}
		best = model[:f.Variables+1]
		next := f.Cost(best)
		if next >= cost {
			return solver.Result{}, fmt.Errorf("gini: bound %d not enforced, model costs %d", cost-1, next)
		}
		cost = next
		s.log.Debugf("gini: round %d improved cost to %d", rounds, cost)
	}
	return solver.Result{Assignment: best, Cost: cost, Optimal: true}, nil
}

// incremental keeps one gini instance and one circuit for a whole search.
// Hard clauses are added once; each round only adds the bound circuit built
// since the previous round, so learnt clauses carry over.
type incremental struct {
	r    relaxed
	c    *logic.C
	g    *gini.Gini
	lits []z.Lit
	bdd  *bdd
	mark []int8
}

func newIncremental(r relaxed) *incremental {
	inc := &incremental{r: r, c: logic.NewC(), lits: make([]z.Lit, r.vars+1)}
	for v := 1; v <= r.vars; v++ {
		inc.lits[v] = inc.c.Lit()
	}
	// Size the solver for every input so unconstrained variables have a value.
	inc.g = gini.NewV(inc.c.Len() + 1)
	inc.mark, _ = inc.c.CnfSince(inc.g, nil)
	for _, cl := range r.hard {
		for _, l := range cl {
			inc.g.Add(inc.toZ(l))
		}
		inc.g.Add(0)
	}
	inc.bdd = newBDD(inc.c, r.terms, inc.toZ)
	return inc
}

func (inc *incremental) toZ(l solver.Lit) z.Lit {
	if l.Positive() {
		return inc.lits[l.Var()]
	}
	return inc.lits[l.Var()].Not()
}

// bound adds "relaxed cost <= k" to the solver. Bounds only tighten during a
// search, so each one is added as a unit clause and never retracted.
func (inc *incremental) bound(k int) {
	root := inc.bdd.atMost(0, k)
	inc.mark, _ = inc.c.CnfSince(inc.g, inc.mark, root)
	inc.g.Add(root)
	inc.g.Add(0)
}

// round looks for a model whose relaxed cost is at most bound. A negative
// bound leaves the cost free. A nil model means unsatisfiable.
func (s *Gini) round(ctx context.Context, inc *incremental, bound int) ([]bool, error) {
	if bound >= 0 {
		inc.bound(bound)
	}
	res, err := s.run(ctx, inc.g)
	if err != nil || res != 1 {
		return nil, err
	}
	model := make([]bool, inc.r.vars+1)
	for v := 1; v <= inc.r.vars; v++ {
		model[v] = inc.g.Value(inc.lits[v])
	}
	return model, nil
}

func (s *Gini) run(ctx context.Context, g *gini.Gini) (int, error) {
	if ctx.Done() == nil {
		return g.Solve(), nil
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	h := g.GoSolve()
	tick := time.NewTicker(s.cfg.PollInterval)
	defer tick.Stop()
	for {
		if res, done := h.Test(); done {
			return res, nil
		}
		select {
		case <-ctx.Done():
			h.Stop()
			return 0, ctx.Err()
		case <-tick.C:
		}
	}
}

// bdd builds "sum of true term weights <= k" as a memoized decision diagram.
type bdd struct {
	c      *logic.C
	terms  []term
	toZ    func(solver.Lit) z.Lit
	suffix []int
	memo   map[[2]int]z.Lit
}

func newBDD(c *logic.C, terms []term, toZ func(solver.Lit) z.Lit) *bdd {
	suffix := make([]int, len(terms)+1)
	for i := len(terms) - 1; i >= 0; i-- {
		suffix[i] = suffix[i+1] + terms[i].weight
	}
	return &bdd{c: c, terms: terms, toZ: toZ, suffix: suffix, memo: make(map[[2]int]z.Lit)}
}

func (b *bdd) atMost(i, k int) z.Lit {
	if k < 0 {
		return b.c.F
	}
	if b.suffix[i] <= k {
		return b.c.T
	}
	key := [2]int{i, k}
	if l, ok := b.memo[key]; ok {
		return l
	}
	t := b.toZ(b.terms[i].lit)
	hi := b.atMost(i+1, k-b.terms[i].weight)
	lo := b.atMost(i+1, k)
	l := b.c.Ors(b.c.And(t, hi), b.c.And(t.Not(), lo))
	b.memo[key] = l
	return l
}
