package config

import "fmt"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`   // debug, info, warn, error
	Format string `mapstructure:"format" yaml:"format"` // json, console
}

// DefaultLoggingConfig logs warnings and above as console text.
func DefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{Level: "warn", Format: "console"}
}

// Validate rejects unknown levels and formats.
func (c LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logging level %q", ErrInvalid, c.Level)
	}
	switch c.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w: logging format %q", ErrInvalid, c.Format)
	}
	return nil
}
