package config

import (
	"crypto/tls"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/lone-faerie/thermo/log"
)

// MQTTConfig is the configuration for the MQTT client.
//
// See [mqtt.ClientOptions]
type MQTTConfig struct {
	// Broker is the URI of the broker. The format should be scheme://host:port
	// where "scheme" is one of "tcp", "ssl", or "ws", "host" is the ip-address
	// (or hostname) and "port" is the port on which the broker is accepting
	// connections.
	Broker string `yaml:"broker"`
	// ClientID is the id of the client. A random id is used if blank.
	ClientID string `yaml:"client_id,omitempty"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// KeepAlive is the duration that the client should wait before pinging the broker.
	KeepAlive time.Duration `yaml:"keep_alive,omitempty"`
	// CertFile and KeyFile are the paths to the PEM-encoded TLS certificate and
	// private key. If either is blank (default) then TLS is not used.
	CertFile string `yaml:"cert_file,omitempty"`
	KeyFile  string `yaml:"key_file,omitempty"`
	// ReconnectInterval is the maximum duration that the client will wait between
	// reconnection attempts.
	ReconnectInterval time.Duration `yaml:"reconnect_interval,omitempty"`
	// ConnectRetry is the maximum duration spent retrying the first connection
	// to the broker. Zero means the first connection is attempted once.
	ConnectRetry time.Duration `yaml:"connect_retry,omitempty"`
	// ConnectTimeout of 0 means the client will never time out when connecting.
	ConnectTimeout time.Duration `yaml:"connect_timeout,omitempty"`
	PingTimeout    time.Duration `yaml:"ping_timeout,omitempty"`
	// WriteTimeout of 0 means publishing will never time out.
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
	// BirthWillEnabled indicates if the Birth and Last Will and Testament messages are enabled.
	BirthWillEnabled bool `yaml:"birth_lwt_enabled"`
	// BirthWillTopic is the topic of the Birth and Last Will and Testament messages.
	// The default value is "thermo/bridge/status"
	BirthWillTopic string `yaml:"birth_lwt_topic"`
	// LogLevel is the log level given to the backing MQTT client package.
	// See [mqtt.Logger]
	LogLevel log.Level `yaml:"log_level"`

	tlsCert *tls.Certificate
}

// DiscoveryConfig is the configuration for performing MQTT discovery of the
// converted sensors.
//
// See https://www.home-assistant.io/integrations/mqtt/#mqtt-discovery
type DiscoveryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Prefix is the discovery_prefix part of the discovery topic. The default
	// value is "homeassistant"
	Prefix string `yaml:"prefix"`
	// DeviceName is the name of the device used for discovery. The special value
	// "hostname" (default) means the hostname of the system is used.
	DeviceName string `yaml:"device_name,omitempty"`
	// NodeID is the (optional) node_id part of the discovery topic. It may only
	// consist of characters from [a-zA-Z0-9_-].
	NodeID string `yaml:"node_id,omitempty"`
	// Availability is the topic used for reporting component availability. The
	// default value is "thermo/bridge/status"
	Availability string `yaml:"availability_topic,omitempty"`
	Retained     bool   `yaml:"retained"`
	QoS          byte   `yaml:"qos,omitempty"`
}

var DefaultMQTT = MQTTConfig{
	Broker:           "$THERMO_BROKER_ADDRESS",
	Username:         "$THERMO_BROKER_USERNAME",
	Password:         "$THERMO_BROKER_PASSWORD",
	BirthWillEnabled: true,
	BirthWillTopic:   "~/bridge/status",
	ConnectRetry:     time.Minute,
	LogLevel:         log.LevelDisabled,
}

var DefaultDiscovery = DiscoveryConfig{
	Enabled:      false,
	Prefix:       "homeassistant",
	DeviceName:   "hostname",
	Availability: "~/bridge/status",
}

// NewClientID returns a random client id, such as "thermo-1b4e28ba".
func NewClientID() string {
	return DefaultTopicPrefix + "-" + uuid.NewString()[:8]
}

// ClientOptions returns cfg formatted as [mqtt.ClientOptions] to provide to
// the backing MQTT client when calling [mqtt.NewClient].
func (cfg *MQTTConfig) ClientOptions() *mqtt.ClientOptions {
	o := mqtt.NewClientOptions()
	o.AddBroker(cfg.Broker)
	if cfg.ClientID != "" {
		o.SetClientID(cfg.ClientID)
	} else {
		o.SetClientID(NewClientID())
	}
	o.SetUsername(cfg.Username).SetPassword(cfg.Password)
	o.SetResumeSubs(true)

	if cfg.KeepAlive > 0 {
		o.SetKeepAlive(cfg.KeepAlive)
	}

	if cfg.ReconnectInterval > 0 {
		o.SetMaxReconnectInterval(cfg.ReconnectInterval)
	}

	if cfg.ConnectTimeout > 0 {
		o.SetConnectTimeout(cfg.ConnectTimeout)
	}

	if cfg.PingTimeout > 0 {
		o.SetPingTimeout(cfg.PingTimeout)
	}

	if cfg.WriteTimeout > 0 {
		o.SetWriteTimeout(cfg.WriteTimeout)
	}

	if cfg.BirthWillEnabled {
		o.SetWill(cfg.BirthWillTopic, "offline", 1, true)
	}

	if cfg.CertFile != "" && cfg.KeyFile != "" {
		o.SetTLSConfig(&tls.Config{
			GetClientCertificate: cfg.getCertificate,
		})
	}

	return o
}

func (cfg *MQTTConfig) getCertificate(_ *tls.CertificateRequestInfo) (*tls.Certificate, error) {
	if cfg.tlsCert == nil {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, err
		}

		cfg.tlsCert = &cert
	}

	return cfg.tlsCert, nil
}
