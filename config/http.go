package config

// HTTPConfig is the configuration for the HTTP API serving conversions, sensor
// readings, and metrics.
type HTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	// Addr is the address the API listens on. The default is ":8080".
	Addr string `yaml:"addr,omitempty"`
	// Metrics enables the prometheus metrics at /metrics.
	Metrics bool `yaml:"metrics"`
}

var DefaultHTTP = HTTPConfig{
	Addr:    ":8080",
	Metrics: true,
}

func (h *HTTPConfig) load() {
	if h.Addr == "" {
		h.Addr = DefaultHTTP.Addr
	}
}
