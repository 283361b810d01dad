package calendar

import "github.com/kilianp07/gcal-scheduler/core/factory"

var registry = factory.NewRegistry[Source]("calendar")

// Register adds a named source constructor. Infra packages call it from init.
func Register(name string, f factory.Factory[Source]) error {
	return registry.Register(name, f)
}

// New builds the source described by cfg.
func New(cfg factory.ModuleConfig) (Source, error) {
	return registry.Create(cfg)
}

// Types lists registered source names.
func Types() []string { return registry.Types() }
