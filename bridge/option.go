package bridge

import (
	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/discovery"
	"github.com/lone-faerie/thermo/log"
)

type Option func(*Bridge)

func WithClient(c mqtt.Client) Option {
	return func(b *Bridge) {
		b.client = c
	}
}

func WithDiscovery(d *discovery.Discovery) Option {
	return func(b *Bridge) {
		b.discovery = d
	}
}

// WithRoutes sets the routes to bridge, ignoring the routes of the config.
func WithRoutes(r ...config.RouteConfig) Option {
	return func(b *Bridge) {
		b.routeCfgs = append(b.routeCfgs, r...)
	}
}

// WithLogLevel sets the loggers of the backing MQTT client package to log at level or above.
func WithLogLevel(level log.Level) Option {
	return func(b *Bridge) {
		if level <= log.LevelError {
			mqtt.ERROR = log.ErrorLogger()
			mqtt.CRITICAL = log.ErrorLogger()
		} else {
			mqtt.ERROR = mqtt.NOOPLogger{}
			mqtt.CRITICAL = mqtt.NOOPLogger{}
		}
		if level <= log.LevelWarn {
			mqtt.WARN = log.WarnLogger()
		} else {
			mqtt.WARN = mqtt.NOOPLogger{}
		}
		if level <= log.LevelDebug {
			mqtt.DEBUG = log.DebugLogger()
		} else {
			mqtt.DEBUG = mqtt.NOOPLogger{}
		}
	}
}

// WithHistory records every published reading with r.
func WithHistory(r Recorder) Option {
	return func(b *Bridge) {
		b.history = r
	}
}

// WithSensors sets the host sensors published by the bridge, ignoring the
// sensors config except for its interval, topic, and scale.
func WithSensors(s ...Sensor) Option {
	return func(b *Bridge) {
		b.sensors = append(b.sensors, s...)
	}
}

func WithTopicPrefix(prefix string) Option {
	return func(b *Bridge) {
		b.topicPrefix = prefix
	}
}
