package solver

import "github.com/kilianp07/gcal-scheduler/core/factory"

var registry = factory.NewRegistry[Solver]("solver")

func init() {
	_ = Register("exhaustive", func(conf map[string]any) (Solver, error) {
		var c struct {
			MaxVariables int `json:"max_variables"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewExhaustive(c.MaxVariables), nil
	})
}

// Register adds a solver factory identified by name.
func Register(name string, f factory.Factory[Solver]) error {
	return registry.Register(name, f)
}

// New creates the solver described by cfg.
func New(cfg factory.ModuleConfig) (Solver, error) {
	return registry.Create(cfg)
}

// Types lists the registered solver types.
func Types() []string { return registry.Types() }
