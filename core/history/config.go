package history

import "fmt"

// Config selects and tunes the history store.
type Config struct {
	// Backend is "jsonl", "sqlite" or "none".
	Backend string `json:"backend"`
	Path    string `json:"path"`
	// MaxSizeMB triggers rotation of the JSONL file.
	MaxSizeMB  int `json:"max_size_mb"`
	MaxBackups int `json:"max_backups"`
	MaxAgeDays int `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "jsonl"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "schedule_history.db"
		default:
			c.Path = "schedule_history.jsonl"
		}
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case "jsonl", "sqlite", "none":
	default:
		return fmt.Errorf("unknown history backend %q", c.Backend)
	}
	if c.Backend != "none" && c.Path == "" {
		return fmt.Errorf("history path is required")
	}
	return nil
}

// Open returns the store described by cfg.
func Open(cfg Config) (Store, error) {
	switch cfg.Backend {
	case "none":
		return NopStore{}, nil
	case "sqlite":
		return NewSQLiteStore(cfg.Path)
	case "jsonl":
		return NewJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}
