package ics

import (
	"github.com/kilianp07/gcal-scheduler/core/calendar"
	"github.com/kilianp07/gcal-scheduler/core/factory"
	"github.com/kilianp07/gcal-scheduler/infra/logger"
)

func init() {
	_ = calendar.Register("ics", func(conf map[string]any) (calendar.Source, error) {
		var c Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return New(c, logger.New("ics")), nil
	})
}
