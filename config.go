package fetchbridge

import (
	"fmt"
	"time"

	"github.com/victoria-riley-barnett/fetchbridge/resilience"
)

// Defaults applied by Config.ApplyDefaults.
const (
	// DefaultTimeout bounds a buffered round trip.
	DefaultTimeout = 30 * time.Second
	// DefaultDialTimeout bounds socket connection establishment.
	DefaultDialTimeout = 10 * time.Second
)

// Config controls a Client. The zero value is usable; New applies
// defaults and validates before building the client.
type Config struct {
	// Timeout bounds a buffered round trip end to end, body included.
	// Streamed round trips are bounded by DialTimeout up to the response
	// headers and by the caller's context after that, so a body can stay
	// open for as long as the caller keeps reading.
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"min=0"`

	// Headers are added to every request. A header set on the request
	// itself wins over the same name here.
	Headers map[string]string `yaml:"headers" mapstructure:"headers"`

	// Auth is applied to every request unless the request carries its
	// own AuthConfig. Set programmatically, not from config files.
	Auth *AuthConfig `yaml:"-" mapstructure:"-"`

	// TLS applies to https targets on both transports. Nil means system
	// roots and default settings.
	TLS *TLSConfig `yaml:"tls" mapstructure:"tls"`

	// Streaming configures the socket transport.
	Streaming StreamingConfig `yaml:"streaming" mapstructure:"streaming"`

	// Breaker guards the socket transport: while the circuit is open,
	// requests that ask to stream are served buffered without a socket
	// attempt. Nil disables the breaker.
	Breaker *resilience.BreakerConfig `yaml:"breaker" mapstructure:"breaker"`

	// RateLimit paces every request with a client-side token bucket.
	// Nil disables pacing.
	RateLimit *resilience.LimiterConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// StreamingConfig configures the socket transport.
type StreamingConfig struct {
	// Disabled routes every request through the buffered transport,
	// including requests that ask to stream.
	Disabled bool `yaml:"disabled" mapstructure:"disabled"`

	// DialTimeout bounds connection establishment, TLS handshake
	// included. Zero means DefaultDialTimeout.
	DialTimeout time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout" validate:"min=0"`
}

// Capability derives the streaming capability from the configuration.
func (s StreamingConfig) Capability() Capability {
	if s.Disabled {
		return StreamingUnavailable{}
	}
	return StreamingAvailable{}
}

// ApplyDefaults fills unset fields with their defaults.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = DefaultTimeout
	}
	if c.Streaming.DialTimeout == 0 {
		c.Streaming.DialTimeout = DefaultDialTimeout
	}
}

// Validate reports configuration errors.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("fetchbridge: timeout must not be negative")
	}
	if c.Streaming.DialTimeout < 0 {
		return fmt.Errorf("fetchbridge: dial_timeout must not be negative")
	}
	if c.TLS != nil {
		if err := c.TLS.Validate(); err != nil {
			return err
		}
	}
	return nil
}
