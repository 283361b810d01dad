package metrics

import (
	"github.com/kilianp07/gcal-scheduler/core/factory"
	coremetrics "github.com/kilianp07/gcal-scheduler/core/metrics"
)

func newProm(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c PromConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	return NewPromSink(c)
}

func newInflux(conf map[string]any) (coremetrics.MetricsSink, error) {
	var c InfluxConfig
	if err := factory.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.Strict {
		return newCheckedInfluxSink(c)
	}
	return NewInfluxSinkWithFallback(c.URL, c.Token, c.Org, c.Bucket), nil
}

func init() {
	_ = coremetrics.RegisterMetricsSink("nop", func(map[string]any) (coremetrics.MetricsSink, error) {
		return coremetrics.NopSink{}, nil
	})
	_ = coremetrics.RegisterMetricsSink("prometheus", newProm)
	_ = coremetrics.RegisterMetricsSink("influx", newInflux)
}
