// Package discovery builds the Home Assistant MQTT discovery payload for the
// converted temperature sensors.
package discovery

import (
	"context"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/internal/build"
)

const (
	Sensor = "sensor"
)

// Component is the discovery mapping of a single entity.
type Component map[Option]any

// Discovery is a device based discovery payload.
type Discovery struct {
	Origin     *Origin              `json:"o"`
	Device     *Device              `json:"dev"`
	Components map[string]Component `json:"cmps"`

	AvailabilityTopic string `json:"avty_t,omitempty"`

	ObjectID string `json:"-"`
	NodeID   string `json:"-"`

	cfg *config.DiscoveryConfig
}

var objectIDReplacer = strings.NewReplacer("/", "_", " ", "_", "+", "_", "#", "_")

// New returns the Discovery with a sensor component for each route.
func New(cfg *config.DiscoveryConfig, routes []config.RouteConfig) (*Discovery, error) {
	dev, err := NewDevice()
	if err != nil {
		return nil, err
	}
	dev.SWVersion = build.Version()
	switch cfg.DeviceName {
	case "", "hostname":
	default:
		dev.Name = cfg.DeviceName
	}
	if dev.Name == "" {
		dev.Name = "Thermo"
	}

	d := &Discovery{
		Origin:            NewOrigin(),
		Device:            dev,
		Components:        make(map[string]Component, len(routes)),
		AvailabilityTopic: cfg.Availability,
		ObjectID:          dev.Identifiers[0],
		NodeID:            cfg.NodeID,
		cfg:               cfg,
	}
	if d.NodeID == "" {
		d.NodeID = "thermo"
	}
	for i := range routes {
		d.AddRoute(&routes[i])
	}
	return d, nil
}

func componentID(r *config.RouteConfig) string {
	return objectIDReplacer.Replace(strings.Trim(r.Target, "/"))
}

// AddRoute adds a temperature sensor for the converted readings of r.
func (d *Discovery) AddRoute(r *config.RouteConfig) {
	id := componentID(r)
	d.Components[id] = Component{
		Platform:                  Sensor,
		Name:                      Title(r.Name),
		DeviceClass:               "temperature",
		StateClass:                "measurement",
		UnitOfMeasurement:         r.To.Symbol(),
		StateTopic:                r.Target,
		SuggestedDisplayPrecision: 1,
		UniqueID:                  d.ObjectID + "_" + id,
		ObjectID:                  d.NodeID + "_" + id,
	}
}

// RemoveRoute removes the sensor added for r.
func (d *Discovery) RemoveRoute(r *config.RouteConfig) {
	delete(d.Components, componentID(r))
}

// Topic returns the discovery topic in the form
// <prefix>/device/<node_id>/<object_id>/config.
func (d *Discovery) Topic() string {
	return strings.Join([]string{d.cfg.Prefix, "device", d.NodeID, d.ObjectID, "config"}, "/")
}

// Publish publishes the discovery payload with c.
func (d *Discovery) Publish(ctx context.Context, c mqtt.Client) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return d.publish(ctx, c, data)
}

// Remove publishes an empty payload to the discovery topic, which removes the
// device and its components from Home Assistant.
func (d *Discovery) Remove(ctx context.Context, c mqtt.Client) error {
	return d.publish(ctx, c, []byte{})
}

func (d *Discovery) publish(ctx context.Context, c mqtt.Client, data []byte) error {
	t := c.Publish(d.Topic(), d.cfg.QoS, d.cfg.Retained, data)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}
	return t.Error()
}
