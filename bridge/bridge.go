// Package bridge implements an MQTT bridge that converts temperature readings
// received on one topic and republishes them in another scale.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lone-faerie/thermo/config"
	"github.com/lone-faerie/thermo/discovery"
	"github.com/lone-faerie/thermo/history"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// ErrNoRoutes is returned when a bridge has no valid routes.
var ErrNoRoutes = errors.New("no routes")

// Stats counts the readings handled by a [Bridge].
type Stats struct {
	// Converted is the number of readings converted and published.
	Converted uint64 `json:"converted"`
	// Clamped is the number of converted readings that were at or below absolute zero.
	Clamped uint64 `json:"clamped"`
	// Dropped is the number of payloads that could not be parsed or converted.
	Dropped uint64 `json:"dropped"`
	// Throttled is the number of readings received too soon after the last
	// reading of a throttled route.
	Throttled uint64 `json:"throttled"`
	// Failed is the number of converted readings that could not be published.
	Failed uint64 `json:"failed"`
}

type update struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte

	value float32
	scale temperature.Scale
}

// Recorder records the readings published by a [Bridge].
type Recorder interface {
	Record(ctx context.Context, r history.Reading) error
}

// Bridge is the mqtt client that converts readings for each configured route.
type Bridge struct {
	client mqtt.Client

	topicPrefix string
	birthWill   bool
	birthTopic  string
	discovery   *discovery.Discovery

	routeCfgs []config.RouteConfig
	routes    map[string]config.RouteConfig

	sensorCfg config.SensorsConfig
	sensors   []Sensor

	updates chan update
	history Recorder

	converted atomic.Uint64
	clamped   atomic.Uint64
	dropped   atomic.Uint64
	throttled atomic.Uint64
	failed    atomic.Uint64

	ready chan error
	done  chan struct{}

	mu       sync.Mutex
	wg       sync.WaitGroup
	once     sync.Once
	stopOnce sync.Once
	ctx      context.Context
	cancel   context.CancelFunc
}

var noopLogger = mqtt.NOOPLogger{}

// New returns a new Bridge with the given config and options. The config will be used to fill
// in any necessary values not provided by the options. Invalid routes are logged and skipped.
// The bridge must have [Bridge.Connect] and [Bridge.Start] called on it before it may be used.
func New(cfg *config.Config, opts ...Option) (*Bridge, error) {
	b := &Bridge{
		birthWill:  cfg.MQTT.BirthWillEnabled,
		birthTopic: cfg.MQTT.BirthWillTopic,
		sensorCfg:  cfg.Sensors,
		updates:    make(chan update),
		ready:      make(chan error, 1),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(b)
	}

	if len(b.routeCfgs) == 0 {
		b.routeCfgs = cfg.Routes
	}

	if b.sensors == nil && cfg.Sensors.Enabled {
		b.sensors = HostSensors(&cfg.Sensors)
	}

	b.routes = validRoutes(b.routeCfgs)
	if len(b.routes) == 0 && len(b.sensors) == 0 {
		return nil, ErrNoRoutes
	}

	if b.client == nil {
		b.client = mqtt.NewClient(cfg.MQTT.ClientOptions())
	}

	if b.discovery == nil && cfg.Discovery.Enabled {
		routes := b.routeList()
		for _, sensor := range b.sensors {
			routes = append(routes, b.sensorRoute(sensor))
		}
		d, err := discovery.New(&cfg.Discovery, routes)
		if err != nil {
			log.Error("Unable to get discovery", err)
		} else {
			b.discovery = d
		}
	}

	if cfg.MQTT.LogLevel < log.LevelDisabled && mqtt.ERROR == noopLogger {
		WithLogLevel(cfg.MQTT.LogLevel)(b)
	}

	if b.topicPrefix == "" {
		if cfg.TopicPrefix != "" {
			b.topicPrefix = cfg.TopicPrefix
		} else {
			b.topicPrefix = config.DefaultTopicPrefix
		}
	}

	return b, nil
}

func validRoutes(cfgs []config.RouteConfig) map[string]config.RouteConfig {
	routes := make(map[string]config.RouteConfig, len(cfgs))
	for _, r := range cfgs {
		if err := r.Validate(); err != nil {
			log.WarnError("Skipping route", err, "topic", r.Topic)
			continue
		}
		if _, ok := routes[r.Topic]; ok {
			log.Warn("Skipping duplicate route", "topic", r.Topic)
			continue
		}
		routes[r.Topic] = r
	}
	return routes
}

func (b *Bridge) routeList() []config.RouteConfig {
	list := make([]config.RouteConfig, 0, len(b.routes))
	for _, r := range b.routes {
		list = append(list, r)
	}
	return list
}

// waitToken waits for the first of ctx.Done() or t.Done() and returns t.Error(), or nil if
// ctx.Done() finished first.
func waitToken(ctx context.Context, t mqtt.Token) error {
	select {
	case <-ctx.Done():
		return nil
	case <-t.Done():
	}

	return t.Error()
}

// maybeSend sends t on ch, unless the given context is cancelled before it can send.
// maybeSend returns true if t was sent and false if the context was canceled.
func maybeSend[T any](ctx context.Context, ch chan<- T, t T) bool {
	select {
	case <-ctx.Done():
		return false
	case ch <- t:
		return true
	}
}

// StopTopic returns the topic that disconnects the bridge when any message is received on it.
func (b *Bridge) StopTopic() string {
	return b.topicPrefix + "/bridge/stop"
}

// Connect will create a connection to the message broker. It returns ctx.Err()
// if ctx is done before the connection completes.
func (b *Bridge) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	t := b.client.Connect()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.Done():
	}
	return t.Error()
}

// ConnectRetry calls [Bridge.Connect] until it succeeds, retrying with exponential
// backoff until maxElapsed has passed or ctx is done. If maxElapsed is not positive,
// Connect is called once.
func (b *Bridge) ConnectRetry(ctx context.Context, maxElapsed time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxElapsed <= 0 {
		return b.Connect(ctx)
	}
	op := func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return b.Connect(ctx)
	}
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     500 * time.Millisecond,
		RandomizationFactor: 0.5,
		Multiplier:          2,
		MaxInterval:         15 * time.Second,
		MaxElapsedTime:      maxElapsed,
		Clock:               backoff.SystemClock,
	}
	return backoff.RetryNotify(op, backoff.WithContext(policy, ctx), func(err error, next time.Duration) {
		log.WarnError("Unable to connect", err, "retry", next)
	})
}

// Start subscribes to every route and begins publishing converted readings.
// The result of subscribing is sent on [Bridge.Ready].
func (b *Bridge) Start(ctx context.Context) {
	b.once.Do(func() {
		if ctx == nil {
			ctx = context.Background()
		}
		b.start(ctx)
	})
}

func (b *Bridge) start(ctx context.Context) {
	b.mu.Lock()
	b.ctx, b.cancel = context.WithCancel(ctx)
	ctx = b.ctx
	routes := b.routeList()
	b.mu.Unlock()

	b.wg.Add(1)
	go b.loop(ctx)

	if len(b.sensors) > 0 {
		b.wg.Add(1)
		go b.pollSensors(ctx)
	}

	go func() {
		defer close(b.ready)

		err := b.subscribe(ctx, routes)
		if err == nil {
			t := b.client.Subscribe(b.StopTopic(), 0, func(_ mqtt.Client, msg mqtt.Message) {
				msg.Ack()
				log.Info("Received stop message")
				go b.Disconnect()
			})
			err = waitToken(ctx, t)
		}
		if err == nil && b.birthWill {
			err = b.publishStatus(ctx, "online")
		}
		b.ready <- err
	}()
}

// subscribe subscribes to each route concurrently.
func (b *Bridge) subscribe(ctx context.Context, routes []config.RouteConfig) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range routes {
		g.Go(func() error {
			t := b.client.Subscribe(r.Topic, r.QoS, b.handleRoute(ctx, r))
			if err := waitToken(gctx, t); err != nil {
				return fmt.Errorf("subscribe %s: %w", r.Topic, err)
			}
			log.Info("Route started", "topic", r.Topic, "target", r.Target, "from", r.From, "to", r.To)
			return nil
		})
	}
	return g.Wait()
}

func (b *Bridge) handleRoute(ctx context.Context, r config.RouteConfig) mqtt.MessageHandler {
	var lim *rate.Limiter
	if r.Throttle > 0 {
		lim = rate.NewLimiter(rate.Every(r.Throttle), 1)
	}
	return func(_ mqtt.Client, msg mqtt.Message) {
		msg.Ack()
		if lim != nil && !lim.Allow() {
			b.throttled.Add(1)
			log.Debug("Throttling reading", "topic", msg.Topic())
			return
		}
		u, err := b.convert(r, msg.Payload())
		if err != nil {
			b.dropped.Add(1)
			log.WarnError("Dropping reading", err, "topic", msg.Topic())
			return
		}
		maybeSend(ctx, b.updates, u)
	}
}

// convert converts the reading in payload for the route r.
func (b *Bridge) convert(r config.RouteConfig, payload []byte) (update, error) {
	v, unit, err := ParsePayload(payload)
	if err != nil {
		return update{}, err
	}
	from := r.From
	if unit != 0 {
		from = unit
	}
	out := temperature.Convert(v, byte(from), byte(r.To))
	if out == temperature.Invalid {
		return update{}, fmt.Errorf("%w: %s to %s", temperature.ErrInvalidScale, from, r.To)
	}
	if temperature.Clamped(v, from) && from != r.To {
		b.clamped.Add(1)
		log.Debug("Reading clamped at absolute zero", "topic", r.Topic, "value", v, "scale", from)
	}
	return update{
		topic:    r.Target,
		qos:      r.QoS,
		retained: r.Retained,
		payload:  AppendValue(nil, out),
		value:    out,
		scale:    r.To,
	}, nil
}

// loop is the event loop for the bridge and publishes any readings received on the updates channel.
func (b *Bridge) loop(ctx context.Context) {
	defer b.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case u := <-b.updates:
			t := b.client.Publish(u.topic, u.qos, u.retained, u.payload)
			if err := waitToken(ctx, t); err != nil {
				b.failed.Add(1)
				log.WarnError("Unable to publish reading", err, "topic", u.topic)
				continue
			}
			b.converted.Add(1)
			b.record(ctx, u)
		}
	}
}

func (b *Bridge) record(ctx context.Context, u update) {
	if b.history == nil {
		return
	}
	r := history.Reading{
		Target: u.topic,
		Value:  u.value,
		Scale:  u.scale,
		Time:   time.Now(),
	}
	if err := b.history.Record(ctx, r); err != nil {
		log.WarnError("Unable to record reading", err, "topic", u.topic)
	}
}

func (b *Bridge) publishStatus(ctx context.Context, status string) error {
	t := b.client.Publish(b.birthTopic, 1, true, []byte(status))
	return waitToken(ctx, t)
}

// Discover publishes the discovery payload, if discovery is enabled.
func (b *Bridge) Discover(ctx context.Context) error {
	if b.discovery == nil {
		return nil
	}
	return b.discovery.Publish(ctx, b.client)
}

// Reload replaces the routes of a started bridge. Routes that were removed are
// unsubscribed and new or changed routes are subscribed.
func (b *Bridge) Reload(ctx context.Context, routes []config.RouteConfig) error {
	next := validRoutes(routes)
	if len(next) == 0 {
		return ErrNoRoutes
	}

	b.mu.Lock()
	prev := b.routes
	b.routes = next
	runCtx := b.ctx
	b.mu.Unlock()

	if runCtx == nil {
		return nil
	}

	var (
		removed []string
		changed []config.RouteConfig
	)
	for topic := range prev {
		if _, ok := next[topic]; !ok {
			removed = append(removed, topic)
		}
	}
	for topic, r := range next {
		if old, ok := prev[topic]; !ok || old != r {
			changed = append(changed, r)
		}
	}

	if len(removed) > 0 {
		if err := waitToken(ctx, b.client.Unsubscribe(removed...)); err != nil {
			return err
		}
		log.Info("Routes removed", "topics", removed)
	}

	if err := b.subscribe(runCtx, changed); err != nil {
		return err
	}

	if b.discovery != nil {
		for _, topic := range removed {
			r := prev[topic]
			b.discovery.RemoveRoute(&r)
		}
		for i := range changed {
			if old, ok := prev[changed[i].Topic]; ok {
				b.discovery.RemoveRoute(&old)
			}
			b.discovery.AddRoute(&changed[i])
		}
		return b.Discover(ctx)
	}
	return nil
}

// Routes returns the routes currently bridged.
func (b *Bridge) Routes() []config.RouteConfig {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.routeList()
}

// Stats returns the counts of readings handled so far.
func (b *Bridge) Stats() Stats {
	return Stats{
		Converted: b.converted.Load(),
		Clamped:   b.clamped.Load(),
		Dropped:   b.dropped.Load(),
		Throttled: b.throttled.Load(),
		Failed:    b.failed.Load(),
	}
}

// Connected reports whether the bridge is connected to the broker.
func (b *Bridge) Connected() bool {
	return b.client.IsConnected()
}

// Ready returns a channel that receives the result of [Bridge.Start] once every
// route has been subscribed.
func (b *Bridge) Ready() <-chan error {
	return b.ready
}

// Done returns a channel that can be used to wait until the bridge has disconnected.
func (b *Bridge) Done() <-chan struct{} {
	return b.done
}

// Disconnect publishes the offline status, if enabled, and ends the connection
// with the broker. It is safe to call more than once.
func (b *Bridge) Disconnect() {
	b.stopOnce.Do(b.disconnect)
}

func (b *Bridge) disconnect() {
	defer close(b.done)

	b.mu.Lock()
	cancel := b.cancel
	b.mu.Unlock()

	if cancel != nil {
		<-b.ready
		cancel()
		b.wg.Wait()
	}

	if !b.client.IsConnected() {
		return
	}
	if b.birthWill {
		if err := b.publishStatus(context.Background(), "offline"); err != nil {
			log.WarnError("Unable to publish LWT on graceful disconnect", err)
		}
	}
	b.client.Disconnect(250)
	log.Info("Disconnected", "stats", b.Stats())
}
