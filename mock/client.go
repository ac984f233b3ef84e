// Package mock provides an in-memory [mqtt.Client] for testing.
package mock

import (
	"io"
	"slices"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/goccy/go-json"

	"github.com/lone-faerie/thermo/log"
)

// Message is a message published with [Client.Publish].
type Message struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  []byte
}

// Client implements [mqtt.Client] without a broker. Published messages are
// recorded and, if a writer is set, encoded to it as JSON. Messages are
// delivered to subscribers with [Client.Deliver].
type Client struct {
	connected bool
	failures  int
	failErr   error
	held      int
	pubFails  int
	pubErr    error

	opts      *mqtt.ClientOptions
	handlers  map[string]mqtt.MessageHandler
	published []Message
	notify    chan struct{}
	w         io.Writer
	mu        sync.Mutex
}

// NewClient returns a new Client with the given options. If w is not nil, every
// published message is written to it.
func NewClient(o *mqtt.ClientOptions, w io.Writer) *Client {
	if o == nil {
		o = mqtt.NewClientOptions()
	}
	return &Client{
		opts:     o,
		handlers: make(map[string]mqtt.MessageHandler),
		notify:   make(chan struct{}, 1),
		w:        w,
	}
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) IsConnectionOpen() bool {
	return c.IsConnected()
}

// FailConnect makes the next n calls to [Client.Connect] fail with err.
func (c *Client) FailConnect(n int, err error) {
	c.mu.Lock()
	c.failures, c.failErr = n, err
	c.mu.Unlock()
}

// FailPublish makes the next n calls to [Client.Publish] fail with err. Failed
// messages are not recorded.
func (c *Client) FailPublish(n int, err error) {
	c.mu.Lock()
	c.pubFails, c.pubErr = n, err
	c.mu.Unlock()
}

// HoldConnect makes the next n calls to [Client.Connect] return a token that
// never completes.
func (c *Client) HoldConnect(n int) {
	c.mu.Lock()
	c.held = n
	c.mu.Unlock()
}

func (c *Client) Connect() mqtt.Token {
	c.mu.Lock()
	if c.held > 0 {
		c.held--
		c.mu.Unlock()
		return heldToken{}
	}
	if c.failures > 0 {
		c.failures--
		c.mu.Unlock()
		return &errToken{err: c.failErr}
	}
	c.connected = true
	c.mu.Unlock()
	if c.opts.OnConnect != nil {
		c.opts.OnConnect(c)
	}
	return &mqtt.DummyToken{}
}

func (c *Client) Disconnect(_ uint) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
}

func (c *Client) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	var p []byte
	switch v := payload.(type) {
	case []byte:
		p = slices.Clone(v)
	case string:
		p = []byte(v)
	}

	c.mu.Lock()
	if c.pubFails > 0 {
		c.pubFails--
		c.mu.Unlock()
		return &errToken{err: c.pubErr}
	}
	c.published = append(c.published, Message{topic, qos, retained, p})
	if c.w != nil {
		e := json.NewEncoder(c.w)
		e.SetIndent("", "  ")
		if err := e.Encode(map[string]string{topic: string(p)}); err != nil {
			log.Error("Error encoding "+topic, err)
		}
	}
	c.mu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
	return &mqtt.DummyToken{}
}

func (c *Client) Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	c.handlers[topic] = callback
	c.mu.Unlock()
	return &mqtt.DummyToken{}
}

func (c *Client) SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	for topic := range filters {
		c.handlers[topic] = callback
	}
	c.mu.Unlock()
	return &mqtt.DummyToken{}
}

func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	for _, topic := range topics {
		delete(c.handlers, topic)
	}
	c.mu.Unlock()
	return &mqtt.DummyToken{}
}

func (c *Client) AddRoute(topic string, callback mqtt.MessageHandler) {
	c.Subscribe(topic, 0, callback)
}

func (c *Client) OptionsReader() mqtt.ClientOptionsReader {
	return mqtt.NewOptionsReader(c.opts)
}

// Deliver calls the handler subscribed to topic with the given payload. It
// reports whether there was a subscription to topic.
func (c *Client) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(c, &message{topic: topic, payload: payload})
	return true
}

// Subscribed returns the sorted topics with a subscription.
func (c *Client) Subscribed() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	topics := make([]string, 0, len(c.handlers))
	for topic := range c.handlers {
		topics = append(topics, topic)
	}
	slices.Sort(topics)
	return topics
}

// Published returns a copy of every message published so far.
func (c *Client) Published() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.published)
}

// Notify returns a channel that receives a value after a message is published.
func (c *Client) Notify() <-chan struct{} {
	return c.notify
}

type message struct {
	topic   string
	payload []byte
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 0 }
func (m *message) Retained() bool    { return false }
func (m *message) MessageID() uint16 { return 0 }
func (m *message) Ack()              {}

func (m *message) Topic() string {
	return m.topic
}

func (m *message) Payload() []byte {
	return m.payload
}

var closed = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()

// errToken is a completed token that failed with err.
type errToken struct {
	err error
}

func (t *errToken) Wait() bool                     { return true }
func (t *errToken) WaitTimeout(time.Duration) bool { return true }
func (t *errToken) Done() <-chan struct{}          { return closed }
func (t *errToken) Error() error                   { return t.err }

// heldToken is a token that never completes.
type heldToken struct{}

func (heldToken) Wait() bool                       { select {} }
func (heldToken) WaitTimeout(d time.Duration) bool { time.Sleep(d); return false }
func (heldToken) Done() <-chan struct{}            { return nil }
func (heldToken) Error() error                     { return nil }
