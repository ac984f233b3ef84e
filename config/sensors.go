package config

import (
	"slices"
	"time"

	"github.com/lone-faerie/thermo/temperature"
)

// SensorsConfig is the configuration for publishing the temperature sensors of
// the host running the bridge.
type SensorsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Interval is how often the sensors are read. The default is 30s.
	Interval time.Duration `yaml:"interval,omitempty"`
	// Topic is the parent topic of the sensors. Each sensor is published to
	// "<topic>/<sensor id>". The default value is "thermo/sensors"
	Topic string `yaml:"topic,omitempty"`
	// Scale is the scale readings are converted to. The default is the top-level scale.
	Scale temperature.Scale `yaml:"scale,omitempty"`
	// Include lists the ids of the sensors to publish, such as "coretemp Package id 0".
	// All sensors are published if empty.
	Include  []string `yaml:"include,omitempty"`
	Retained bool     `yaml:"retained,omitempty"`
	QoS      byte     `yaml:"qos,omitempty"`
}

var DefaultSensors = SensorsConfig{
	Interval: 30 * time.Second,
	Topic:    "~/sensors",
}

func (s *SensorsConfig) load(cfg *Config) {
	if s.Scale == 0 {
		s.Scale = cfg.Scale
	}
	if s.Interval <= 0 {
		s.Interval = DefaultSensors.Interval
	}
	if s.Topic == "" {
		s.Topic = DefaultSensors.Topic
	}
	s.Topic = ReplaceBase(cfg.TopicPrefix, s.Topic)
}

// Includes reports whether the sensor with the given id should be published.
func (s *SensorsConfig) Includes(id string) bool {
	return len(s.Include) == 0 || slices.Contains(s.Include, id)
}
