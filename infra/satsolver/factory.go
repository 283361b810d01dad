package satsolver

import (
	"github.com/kilianp07/gcal-scheduler/core/factory"
	"github.com/kilianp07/gcal-scheduler/core/solver"
	"github.com/kilianp07/gcal-scheduler/infra/logger"
)

// init registers the gini solver.
func init() {
	_ = solver.Register("gini", func(conf map[string]any) (solver.Solver, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c, logger.New("satsolver")), nil
	})
}
