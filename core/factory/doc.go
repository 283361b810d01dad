// Package factory provides a small generic registry used to instantiate modules
// from configuration. Modules are defined by a type string and a map of raw
// settings. Factories decode the settings into typed structs and return the
// concrete implementation.
//
// Example usage:
//
//	reg := factory.NewRegistry[solver.Solver]("solver")
//	reg.Register("exhaustive", func(conf map[string]any) (solver.Solver, error) {
//	    var c struct{ MaxVariables int `json:"max_variables"` }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return solver.NewExhaustive(c.MaxVariables), nil
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "exhaustive", Conf: map[string]any{"max_variables": 20}})
package factory
