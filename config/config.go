// Package config loads the scheduler configuration from a YAML or JSON file
// with K_ prefixed environment overrides, and resolves the team roster into
// model records.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/gcal-scheduler/core/history"
	"github.com/kilianp07/gcal-scheduler/core/metrics"
	"github.com/kilianp07/gcal-scheduler/core/scheduler"
	"github.com/kilianp07/gcal-scheduler/infra/mqtt"
)

type Config struct {
	Members        []MemberConfig      `json:"members"`
	Meetings       []MeetingConfig     `json:"meetings"`
	ActiveMeetings []string            `json:"active_meetings"`
	KeyAttendees   []KeyAttendeeConfig `json:"key_attendees"`
	KeyMeetings    []string            `json:"key_meetings"`
	Penalties      PenaltyConfig       `json:"penalties"`
	Scheduling     SchedulingConfig    `json:"scheduling"`
	Calendar       CalendarConfig      `json:"calendar"`
	PotentialTimes []WindowConfig      `json:"potential_times"`
	Busy           []BusyConfig        `json:"busy"`
	Solver         SolverConfig        `json:"solver"`
	History        history.Config      `json:"history"`
	Metrics        metrics.Config      `json:"metrics"`
	MQTT           mqtt.Config         `json:"mqtt"`
	Sentry         SentryConfig        `json:"sentry"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", ".", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Penalties.SetDefaults()
	c.Scheduling.SetDefaults()
	c.Solver.SetDefaults()
	c.History.SetDefaults()
	c.MQTT.SetDefaults()
}

// Validate checks every section and returns all problems at once as a
// *scheduler.ConfigurationError. Roster references are checked by Roster.
func (c *Config) Validate() error {
	var cerr scheduler.ConfigurationError
	for _, err := range []error{
		c.Penalties.Validate(),
		c.Scheduling.Validate(),
		c.Calendar.Validate(len(c.PotentialTimes) > 0),
		c.Solver.Validate(),
		c.History.Validate(),
		c.MQTT.Validate(),
	} {
		var nested *scheduler.ConfigurationError
		switch {
		case err == nil:
		case errors.As(err, &nested):
			cerr.Problems = append(cerr.Problems, nested.Problems...)
		default:
			cerr.Addf("%v", err)
		}
	}
	return cerr.Err()
}
