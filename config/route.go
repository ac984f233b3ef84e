package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lone-faerie/thermo/temperature"
)

var (
	ErrNoTopic        = errors.New("no topic")
	ErrSameScale      = errors.New("from and to are the same scale")
	ErrDuplicateTopic = errors.New("duplicate topic")
	ErrInvalidQoS     = errors.New("qos must be 0, 1, or 2")
	ErrNegative       = errors.New("throttle must not be negative")
)

// RouteConfig describes a topic of temperature readings to convert and republish.
type RouteConfig struct {
	// Name is the display name used for discovery. The default is derived from Topic.
	Name string `yaml:"name,omitempty"`
	// Topic is the topic the readings are received on.
	Topic string `yaml:"topic"`
	// From is the scale of the received readings.
	From temperature.Scale `yaml:"from"`
	// To is the scale readings are converted to. The default is the top-level scale.
	To temperature.Scale `yaml:"to,omitempty"`
	// Target is the topic converted readings are published to. The default
	// is "~/<topic>/<to>", for example "thermo/sensors/attic/fahrenheit".
	Target   string `yaml:"target,omitempty"`
	Retained bool   `yaml:"retained,omitempty"`
	QoS      byte   `yaml:"qos,omitempty"`
	// Throttle is the minimum time between converted readings. Readings
	// received sooner are dropped. Zero disables throttling.
	Throttle time.Duration `yaml:"throttle,omitempty"`
}

func (r *RouteConfig) load(cfg *Config) {
	if r.To == 0 {
		r.To = cfg.Scale
	}
	if r.Target == "" && r.Topic != "" && r.To.Valid() {
		r.Target = "~/" + strings.Trim(r.Topic, "/") + "/" + r.To.String()
	}
	r.Target = ReplaceBase(cfg.TopicPrefix, r.Target)
	if r.Name == "" {
		r.Name = r.defaultName()
	}
}

func (r *RouteConfig) defaultName() string {
	s := strings.Trim(r.Topic, "/")
	if i := strings.LastIndexByte(s, '/'); i >= 0 {
		s = s[i+1:]
	}
	return strings.NewReplacer("_", " ", "-", " ").Replace(s)
}

// Validate returns an error if the route has no topic, an invalid scale, or
// converts a scale to itself.
func (r *RouteConfig) Validate() error {
	if r.Topic == "" {
		return ErrNoTopic
	}
	if !r.From.Valid() {
		return fmt.Errorf("from: %w", temperature.ErrInvalidScale)
	}
	if !r.To.Valid() {
		return fmt.Errorf("to: %w", temperature.ErrInvalidScale)
	}
	if r.From == r.To {
		return ErrSameScale
	}
	if r.QoS > 2 {
		return ErrInvalidQoS
	}
	if r.Throttle < 0 {
		return ErrNegative
	}
	return nil
}
