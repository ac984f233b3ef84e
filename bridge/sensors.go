package bridge

import (
	"context"
	"strings"
	"time"

	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/internal/sysfs"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// Sensor is a temperature sensor of the host, read in degrees Celsius.
type Sensor interface {
	ID() string
	Read() (float32, error)
}

// HostSensors returns the sensors of the host included by cfg.
func HostSensors(cfg *config.SensorsConfig) []Sensor {
	found, err := sysfs.Sensors()
	if err != nil {
		log.Error("Unable to find sensors", err)
		return nil
	}
	var sensors []Sensor
	for i := range found {
		if cfg.Includes(found[i].ID()) {
			sensors = append(sensors, &found[i])
		}
	}
	log.Debug("Found sensors", "total", len(found), "included", len(sensors))
	return sensors
}

var sensorTopicReplacer = strings.NewReplacer(" ", "_", "/", "_", "+", "_", "#", "_")

// SensorTopic returns the topic the sensor with the given id is published to.
func (b *Bridge) SensorTopic(id string) string {
	return b.sensorCfg.Topic + "/" + sensorTopicReplacer.Replace(strings.ToLower(id))
}

// Sensors returns the host sensors published by the bridge.
func (b *Bridge) Sensors() []Sensor {
	return b.sensors
}

// sensorRoute returns the route describing the readings published for s.
func (b *Bridge) sensorRoute(s Sensor) config.RouteConfig {
	return config.RouteConfig{
		Name:     s.ID(),
		From:     temperature.Celsius,
		To:       b.sensorCfg.Scale,
		Target:   b.SensorTopic(s.ID()),
		Retained: b.sensorCfg.Retained,
		QoS:      b.sensorCfg.QoS,
	}
}

func (b *Bridge) pollSensors(ctx context.Context) {
	defer b.wg.Done()

	interval := b.sensorCfg.Interval
	if interval <= 0 {
		interval = config.DefaultSensors.Interval
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	log.Debug("sensors started", "interval", interval)

	for {
		if !b.readSensors(ctx) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

// readSensors reads every sensor and sends the converted readings to be
// published. It returns false if ctx is done.
func (b *Bridge) readSensors(ctx context.Context) bool {
	for _, s := range b.sensors {
		c, err := s.Read()
		if err != nil {
			b.dropped.Add(1)
			log.WarnError("Unable to read sensor", err, "sensor", s.ID())
			continue
		}
		r := b.sensorRoute(s)
		out := temperature.Convert(c, byte(r.From), byte(r.To))
		if out == temperature.Invalid {
			b.dropped.Add(1)
			log.Warn("Invalid sensor scale", "sensor", s.ID(), "scale", r.To)
			continue
		}
		if temperature.Clamped(c, r.From) && r.From != r.To {
			b.clamped.Add(1)
		}
		u := update{
			topic:    r.Target,
			qos:      r.QoS,
			retained: r.Retained,
			payload:  AppendValue(nil, out),
			value:    out,
			scale:    r.To,
		}
		if !maybeSend(ctx, b.updates, u) {
			return false
		}
	}
	return true
}
