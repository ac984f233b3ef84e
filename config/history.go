package config

import "time"

// HistoryConfig is the configuration for storing the converted readings in a
// SQLite database.
type HistoryConfig struct {
	Enabled bool `yaml:"enabled"`
	// Path is the path of the database. The default is "thermo.db".
	Path string `yaml:"path,omitempty"`
	// Retention is how long readings are kept. The default is 7 days and
	// zero keeps every reading.
	Retention time.Duration `yaml:"retention,omitempty"`
}

var DefaultHistory = HistoryConfig{
	Path:      "thermo.db",
	Retention: 7 * 24 * time.Hour,
}

func (h *HistoryConfig) load() {
	if h.Path == "" {
		h.Path = DefaultHistory.Path
	}
	if h.Retention < 0 {
		h.Retention = 0
	}
}
