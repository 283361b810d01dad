package satsolver

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/gcal-scheduler/core/factory"
	"github.com/kilianp07/gcal-scheduler/core/solver"
)

// randomFormula builds a satisfiable-by-construction formula: every hard
// clause contains a literal true under a hidden assignment.
func randomFormula(rng *rand.Rand, vars, hard, soft int) solver.Formula {
	f := solver.Formula{Variables: vars}
	hidden := make([]bool, vars+1)
	for v := 1; v <= vars; v++ {
		hidden[v] = rng.Intn(2) == 1
	}
	lit := func(v int, positive bool) solver.Lit {
		if positive {
			return solver.Lit(v)
		}
		return solver.Lit(-v)
	}
	for i := 0; i < hard; i++ {
		v := 1 + rng.Intn(vars)
		cl := solver.Clause{lit(v, hidden[v])}
		for k := rng.Intn(3); k > 0; k-- {
			u := 1 + rng.Intn(vars)
			cl = append(cl, lit(u, rng.Intn(2) == 1))
		}
		f.AddHard(cl...)
	}
	for i := 0; i < soft; i++ {
		cl := solver.Clause{}
		for k := 1 + rng.Intn(2); k > 0; k-- {
			u := 1 + rng.Intn(vars)
			cl = append(cl, lit(u, rng.Intn(2) == 1))
		}
		f.AddSoft(rng.Intn(7), cl...)
	}
	return f
}

func TestGiniMatchesExhaustive(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	g := New(Config{}, nil)
	ex := solver.NewExhaustive(16)
	for i := 0; i < 40; i++ {
		f := randomFormula(rng, 4+rng.Intn(8), 3+rng.Intn(10), rng.Intn(12))
		want, err := ex.Solve(context.Background(), f)
		require.NoError(t, err)
		got, err := g.Solve(context.Background(), f)
		require.NoError(t, err, "formula %d", i)

		assert.True(t, got.Optimal)
		assert.Equal(t, want.Cost, got.Cost, "formula %d", i)
		require.Len(t, got.Assignment, f.Variables+1)
		_, ok := f.HardSatisfied(got.Assignment)
		assert.True(t, ok, "formula %d", i)
		assert.Equal(t, got.Cost, f.Cost(got.Assignment))
	}
}

func TestGiniMergesUnitTerms(t *testing.T) {
	var f solver.Formula
	a, b := f.NewVar(), f.NewVar()
	f.AddHard(a, b)
	f.AddSoft(1, a.Neg())
	f.AddSoft(5, a.Neg())
	f.AddSoft(4, b.Neg())
	f.AddSoft(0, a, b.Neg())

	r := relax(f)
	assert.Equal(t, 2, r.vars)
	assert.Equal(t, []term{{lit: a, weight: 6}, {lit: b, weight: 4}}, r.terms)

	res, err := New(Config{}, nil).Solve(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Cost)
	assert.Equal(t, []solver.Lit{b}, res.True())
}

func TestGiniUnsatisfiable(t *testing.T) {
	var f solver.Formula
	a := f.NewVar()
	f.AddHard(a)
	f.AddHard(a.Neg())
	_, err := New(Config{}, nil).Solve(context.Background(), f)
	assert.True(t, errors.Is(err, solver.ErrUnsatisfiable), "got %v", err)
}

func TestGiniCancelled(t *testing.T) {
	f := randomFormula(rand.New(rand.NewSource(1)), 6, 4, 4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}, nil).Solve(ctx, f)
	assert.ErrorIs(t, err, solver.ErrInterrupted)
}

func TestGiniPolledSolve(t *testing.T) {
	f := randomFormula(rand.New(rand.NewSource(7)), 8, 6, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	res, err := New(Config{}, nil).Solve(ctx, f)
	require.NoError(t, err)
	want, err := solver.NewExhaustive(0).Solve(context.Background(), f)
	require.NoError(t, err)
	assert.Equal(t, want.Cost, res.Cost)
}

func TestGiniRoundCap(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	f := randomFormula(rng, 10, 5, 12)
	want, err := solver.NewExhaustive(0).Solve(context.Background(), f)
	require.NoError(t, err)
	res, err := New(Config{MaxRounds: 1}, nil).Solve(context.Background(), f)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Cost, want.Cost)
	if !res.Optimal {
		assert.Equal(t, res.Cost, f.Cost(res.Assignment))
	}
}

func TestRegisteredGini(t *testing.T) {
	s, err := solver.New(factory.ModuleConfig{Type: "gini", Conf: map[string]any{"poll_interval": "5ms", "max_rounds": 3}})
	require.NoError(t, err)
	g, ok := s.(*Gini)
	require.True(t, ok)
	assert.Equal(t, 3, g.cfg.MaxRounds)
	assert.Equal(t, "5ms", g.cfg.PollInterval.String())
}
