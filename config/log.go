package config

import "github.com/lone-faerie/thermo/log"

// LogConfig is the configuration for logging.
type LogConfig struct {
	Level log.Level `yaml:"level"`
	// Output is one of "stderr" (default), "stdout", "discard", or a file path.
	Output string `yaml:"output,omitempty"`
	// Format is one of "json", "text", or blank for the standard logger format.
	Format string `yaml:"format,omitempty"`
}

var DefaultLog = LogConfig{
	Level: log.LevelInfo,
}
