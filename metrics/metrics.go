// Package metrics exports the counters of the bridge and the readings of the
// host temperature sensors as prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/lone-faerie/thermo/bridge"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// Namespace prefixes the name of every metric.
const Namespace = "thermo"

// Collector is a [prometheus.Collector] for a bridge and a set of sensors.
// Sensors are read on every scrape.
type Collector struct {
	stats   func() bridge.Stats
	sensors []bridge.Sensor
	scale   temperature.Scale

	converted *prometheus.Desc
	clamped   *prometheus.Desc
	dropped   *prometheus.Desc
	throttled *prometheus.Desc
	failed    *prometheus.Desc
	reading   *prometheus.Desc
	readErrs  *prometheus.Desc
}

// NewCollector returns a Collector reporting the counters returned by stats
// and the readings of sensors converted to scale. Either may be nil.
func NewCollector(stats func() bridge.Stats, sensors []bridge.Sensor, scale temperature.Scale) *Collector {
	if !scale.Valid() {
		scale = temperature.Celsius
	}
	counter := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(Namespace, "bridge", name), help, nil, nil)
	}
	return &Collector{
		stats:     stats,
		sensors:   sensors,
		scale:     scale,
		converted: counter("readings_converted_total", "Readings converted and published."),
		clamped:   counter("readings_clamped_total", "Converted readings clamped at absolute zero."),
		dropped:   counter("readings_dropped_total", "Readings that could not be parsed or converted."),
		throttled: counter("readings_throttled_total", "Readings dropped by the throttle of a route."),
		failed:    counter("readings_failed_total", "Converted readings that could not be published."),
		reading: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "sensor", "temperature_"+scale.String()),
			"Current temperature of a host sensor.",
			[]string{"sensor"}, nil,
		),
		readErrs: prometheus.NewDesc(
			prometheus.BuildFQName(Namespace, "sensor", "read_errors"),
			"Sensors that could not be read during the scrape.",
			nil, nil,
		),
	}
}

// Describe implements [prometheus.Collector].
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	if c.stats != nil {
		ch <- c.converted
		ch <- c.clamped
		ch <- c.dropped
		ch <- c.throttled
		ch <- c.failed
	}
	if len(c.sensors) > 0 {
		ch <- c.reading
		ch <- c.readErrs
	}
}

// Collect implements [prometheus.Collector].
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.stats != nil {
		s := c.stats()
		ch <- prometheus.MustNewConstMetric(c.converted, prometheus.CounterValue, float64(s.Converted))
		ch <- prometheus.MustNewConstMetric(c.clamped, prometheus.CounterValue, float64(s.Clamped))
		ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(s.Dropped))
		ch <- prometheus.MustNewConstMetric(c.throttled, prometheus.CounterValue, float64(s.Throttled))
		ch <- prometheus.MustNewConstMetric(c.failed, prometheus.CounterValue, float64(s.Failed))
	}
	if len(c.sensors) == 0 {
		return
	}
	var errs int
	seen := make(map[string]bool, len(c.sensors))
	for _, s := range c.sensors {
		// a repeated label set fails the whole scrape
		if seen[s.ID()] {
			continue
		}
		seen[s.ID()] = true
		v, err := s.Read()
		if err != nil {
			errs++
			log.WarnError("Unable to read sensor", err, "sensor", s.ID())
			continue
		}
		v = temperature.Convert(v, byte(temperature.Celsius), byte(c.scale))
		ch <- prometheus.MustNewConstMetric(c.reading, prometheus.GaugeValue, float64(v), s.ID())
	}
	ch <- prometheus.MustNewConstMetric(c.readErrs, prometheus.GaugeValue, float64(errs))
}

// NewRegistry returns a registry with the Go runtime and process collectors,
// the collector c, and a gauge of the number of routes bridged by b. b may be nil.
func NewRegistry(c *Collector, b *bridge.Bridge) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	cs := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: Namespace}),
		c,
	}
	if b != nil {
		cs = append(cs, prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Subsystem: "bridge",
				Name:      "routes",
				Help:      "Routes currently bridged.",
			},
			func() float64 {
				return float64(len(b.Routes()))
			},
		))
	}
	for _, col := range cs {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
