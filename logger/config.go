package logger

import "fmt"

// Config contains logging configuration.
type Config struct {
	// Level is the minimum level emitted: trace, debug, info, warn, error, fatal.
	Level string `yaml:"level" mapstructure:"level"`
	// Format selects the output encoding: json or console.
	Format string `yaml:"format" mapstructure:"format"`
	// Output selects the destination: stdout or stderr.
	Output string `yaml:"output" mapstructure:"output"`
	// NoColor disables ANSI colors in console format.
	NoColor bool `yaml:"no_color" mapstructure:"no_color"`
	// Timestamp adds a timestamp field to every event.
	Timestamp bool `yaml:"timestamp" mapstructure:"timestamp"`
	// Caller adds the file:line of the log call site.
	Caller bool `yaml:"caller" mapstructure:"caller"`
}

// ApplyDefaults fills zero-value fields with sensible defaults.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "console"
	}
	if c.Output == "" {
		c.Output = "stdout"
	}
	c.Timestamp = true
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	validLevels := []string{"trace", "debug", "info", "warn", "error", "fatal"}
	if !contains(validLevels, c.Level) {
		return fmt.Errorf("logging.level must be one of %v (got: %s)", validLevels, c.Level)
	}
	validFormats := []string{"json", "console"}
	if !contains(validFormats, c.Format) {
		return fmt.Errorf("logging.format must be one of %v (got: %s)", validFormats, c.Format)
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
