package logger

import "errors"

// Level represents the logging level.
type Level string

const (
	// DebugLevel logs debug messages.
	DebugLevel Level = "debug"
	// InfoLevel logs info messages.
	InfoLevel Level = "info"
	// WarnLevel logs warning messages.
	WarnLevel Level = "warn"
	// ErrorLevel logs error messages.
	ErrorLevel Level = "error"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Default configuration values.
const (
	DefaultLevel  = string(WarnLevel)
	DefaultFormat = FormatConsole
)

// DefaultOutputPaths keeps stdout free for snapshot data.
var DefaultOutputPaths = []string{"stderr"}

var (
	// ErrInvalidLevel is returned when an unknown logging level is configured.
	ErrInvalidLevel = errors.New("invalid logging level")
	// ErrInvalidFormat is returned when an unknown log format is configured.
	ErrInvalidFormat = errors.New("invalid log format")
)

// Config represents the logger configuration.
type Config struct {
	// Level is the minimum logging level (debug, info, warn, error).
	Level string `mapstructure:"level"`
	// Format is either "console" or "json".
	Format string `mapstructure:"format"`
	// Development enables caller and stacktrace annotations.
	Development bool `mapstructure:"development"`
	// OutputPaths is a list of URLs or file paths to write logging output to.
	OutputPaths []string `mapstructure:"output_paths"`
}

// SetDefaults applies default values to the config if not set.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = DefaultLevel
	}
	if c.Format == "" {
		c.Format = DefaultFormat
	}
	if len(c.OutputPaths) == 0 {
		c.OutputPaths = DefaultOutputPaths
	}
}

// Validate checks level and format.
func (c *Config) Validate() error {
	switch Level(c.Level) {
	case DebugLevel, InfoLevel, WarnLevel, ErrorLevel, "warning":
	default:
		return ErrInvalidLevel
	}
	switch c.Format {
	case FormatConsole, FormatJSON:
	default:
		return ErrInvalidFormat
	}
	return nil
}
