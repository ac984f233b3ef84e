// Package config provides the structures used for configuration.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lone-faerie/thermo/config/secrets"
	"github.com/lone-faerie/thermo/log"
	"github.com/lone-faerie/thermo/temperature"
)

// DefaultTopicPrefix is the topic prefix used when none is configured.
const DefaultTopicPrefix = "thermo"

// Config contains the configuration for the converter and the MQTT bridge.
// Config should be created with a call to [Default], [Read], or [Load] as
// some options require further configuration than simply setting.
type Config struct {
	// Scale is the default scale converted to when none is given.
	Scale       temperature.Scale `yaml:"scale,omitempty"`
	TopicPrefix string            `yaml:"topic_prefix"`
	MQTT        MQTTConfig        `yaml:"mqtt,omitempty"`
	Discovery   DiscoveryConfig   `yaml:"discovery,omitempty"`
	Log         LogConfig         `yaml:"log,omitempty"`
	Sensors     SensorsConfig     `yaml:"sensors,omitempty"`
	HTTP        HTTPConfig        `yaml:"http,omitempty"`
	History     HistoryConfig     `yaml:"history,omitempty"`
	Routes      []RouteConfig     `yaml:"routes,omitempty"`
}

// Option modifies a Config returned by [Default].
type Option func(*Config)

// WithScale sets the default target scale.
func WithScale(s temperature.Scale) Option {
	return func(cfg *Config) {
		cfg.Scale = s
	}
}

// WithTopicPrefix sets the topic prefix substituted for "~" in topics.
func WithTopicPrefix(prefix string) Option {
	return func(cfg *Config) {
		cfg.TopicPrefix = prefix
	}
}

// WithRoutes appends the given routes.
func WithRoutes(r ...RouteConfig) Option {
	return func(cfg *Config) {
		cfg.Routes = append(cfg.Routes, r...)
	}
}

func newDefault() *Config {
	return &Config{
		Scale:       temperature.Celsius,
		TopicPrefix: DefaultTopicPrefix,
		MQTT:        DefaultMQTT,
		Discovery:   DefaultDiscovery,
		Log:         DefaultLog,
		Sensors:     DefaultSensors,
		HTTP:        DefaultHTTP,
		History:     DefaultHistory,
	}
}

// Default returns the default Config when no config file is provided.
func Default(opts ...Option) *Config {
	cfg := newDefault()
	for _, opt := range opts {
		opt(cfg)
	}
	cfg.load()
	return cfg
}

// Read returns the Config parsed from the yaml encoded config from r.
func Read(r io.Reader) (*Config, error) {
	cfg := newDefault()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	cfg.load()
	return cfg, nil
}

// Load returns the Config parsed from the given yaml files. If the first file does
// not exist, the default config is returned. If any of the given paths are
// directories, all the yaml files in the directory are read. Files are decoded in
// order, so later files override the values of earlier ones.
func Load(file ...string) (*Config, error) {
	log.Info("Loading config", "path", file)
	if len(file) == 0 {
		return Default(), nil
	}
	if _, err := os.Stat(file[0]); err != nil {
		log.Debug("Config not found, using default", "path", file[0])
		return Default(), nil
	}
	files, err := expandPaths(file)
	if err != nil {
		return nil, err
	}
	cfg := newDefault()
	for _, name := range files {
		if err = decodeFile(name, cfg); err != nil {
			return nil, err
		}
	}
	cfg.load()
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	err := yaml.NewDecoder(r).Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func decodeFile(name string, cfg *Config) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	if err = decode(f, cfg); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func isYAML(name string) bool {
	switch filepath.Ext(name) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

func expandPaths(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if !e.IsDir() && isYAML(e.Name()) {
				files = append(files, filepath.Join(p, e.Name()))
			}
		}
	}
	return files, nil
}

func (cfg *Config) load() {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = DefaultTopicPrefix
	}
	cfg.Expand()
	cfg.MQTT.BirthWillTopic = ReplaceBase(cfg.TopicPrefix, cfg.MQTT.BirthWillTopic)
	cfg.Discovery.Availability = ReplaceBase(cfg.TopicPrefix, cfg.Discovery.Availability)
	cfg.Sensors.load(cfg)
	cfg.HTTP.load()
	cfg.History.load()
	for i := range cfg.Routes {
		cfg.Routes[i].load(cfg)
	}
	log.Debug("Config loaded", "prefix", cfg.TopicPrefix, "routes", len(cfg.Routes))
}

// ReplaceBase replaces a leading "~/" or trailing "/~" of topic with base.
func ReplaceBase(base, topic string) string {
	if s, ok := strings.CutPrefix(topic, "~/"); ok {
		topic = base + "/" + s
	}
	if s, ok := strings.CutSuffix(topic, "/~"); ok {
		topic = s + "/" + base
	}
	return topic
}

func expandValue(v reflect.Value) {
	switch v.Kind() {
	case reflect.String:
		if v.CanSet() {
			v.SetString(Expand(v.String()))
		}
	case reflect.Struct:
		n := v.NumField()
		for i := 0; i < n; i++ {
			if v.Type().Field(i).IsExported() {
				expandValue(v.Field(i))
			}
		}
	case reflect.Slice, reflect.Array:
		n := v.Len()
		for i := 0; i < n; i++ {
			expandValue(v.Index(i))
		}
	case reflect.Pointer:
		if !v.IsNil() {
			expandValue(v.Elem())
		}
	}
}

// Expand replaces ${var} or $var in s according to the values of
// the current environment variables, and replaces !secret var according
// to the file at /run/secrets/<var>.
func Expand(s string) string {
	if secret, ok := secrets.CutPrefix(s); ok {
		return secrets.MustRead(secret, "")
	}
	return os.ExpandEnv(s)
}

// Expand calls [Expand] on every string field of cfg.
func (cfg *Config) Expand() {
	expandValue(reflect.ValueOf(cfg).Elem())
}

// Write writes the yaml encoding of cfg to w.
func (cfg *Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	defer enc.Close()

	enc.SetIndent(2)
	return enc.Encode(cfg)
}

// Validate reports every route that cannot be bridged. The returned error
// joins one error per invalid route.
func (cfg *Config) Validate() error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Routes))
	for i := range cfg.Routes {
		r := &cfg.Routes[i]
		if err := r.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("route %d: %w", i, err))
			continue
		}
		if seen[r.Topic] {
			errs = append(errs, fmt.Errorf("route %d: %w: %s", i, ErrDuplicateTopic, r.Topic))
		}
		seen[r.Topic] = true
	}
	return errors.Join(errs...)
}

// SetRoutes keeps only the routes whose topic or name is one of the given
// values. If only the value "all" is given, every route is kept.
func (cfg *Config) SetRoutes(name ...string) {
	if len(name) == 0 || len(name) == 1 && name[0] == "all" {
		return
	}
	cfg.Routes = slices.DeleteFunc(cfg.Routes, func(r RouteConfig) bool {
		return !slices.Contains(name, r.Topic) && !slices.Contains(name, r.Name)
	})
}
