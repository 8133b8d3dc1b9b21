package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/victoria-riley-barnett/fetchbridge"
	"github.com/victoria-riley-barnett/fetchbridge/logger"
	"github.com/victoria-riley-barnett/fetchbridge/observability"
	"github.com/victoria-riley-barnett/fetchbridge/version"
)

// File is the fetchbridge.yml schema.
type File struct {
	// Client configures transports, timeouts, and TLS.
	Client fetchbridge.Config `yaml:"client" mapstructure:"client"`
	// Logging configures the zerolog output.
	Logging logger.Config `yaml:"logging" mapstructure:"logging"`
	// Telemetry configures OTLP trace and metric export.
	Telemetry Telemetry `yaml:"telemetry" mapstructure:"telemetry"`
}

// Telemetry is the OpenTelemetry export section.
type Telemetry struct {
	// Enabled turns OTLP export on.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Endpoint is the OTLP HTTP endpoint as host:port.
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"omitempty,hostname_port"`
	// SampleRate is the trace sampling rate between 0 and 1.
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate" validate:"min=0,max=1"`
	// Insecure allows plain HTTP export.
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Environment tags exported telemetry (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
}

// Default returns a File with every section at its defaults.
func Default() *File {
	var f File
	f.ApplyDefaults()
	return &f
}

// ApplyDefaults fills unset fields in every section.
func (f *File) ApplyDefaults() {
	f.Client.ApplyDefaults()
	f.Logging.ApplyDefaults()
	f.Telemetry.applyDefaults()
}

func (t *Telemetry) applyDefaults() {
	if t.Endpoint == "" {
		t.Endpoint = "localhost:4318"
		t.Insecure = true
	}
	if t.SampleRate == 0 {
		t.SampleRate = 1.0
	}
	if t.Environment == "" {
		t.Environment = "development"
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks tagged constraints and each section's own rules.
func (f *File) Validate() error {
	if err := validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("config: %s %s", fieldPath(e), constraintMessage(e))
		}
		return fmt.Errorf("config: %w", err)
	}
	if err := f.Client.Validate(); err != nil {
		return err
	}
	if err := f.Logging.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Build constructs a Client from the file: the logging section becomes
// the client logger and the client section configures the transports.
// Extra options are applied after the logger.
func (f *File) Build(opts ...fetchbridge.Option) (*fetchbridge.Client, error) {
	log := logger.New(&f.Logging, "fetchbridge")
	merged := append([]fetchbridge.Option{fetchbridge.WithLogger(log)}, opts...)
	return fetchbridge.New(f.Client, merged...)
}

// TracerConfig converts the telemetry section for observability.InitTracer.
func (t Telemetry) TracerConfig(serviceName string) *observability.TracerConfig {
	return &observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version.GetShortVersion(),
		Environment:    t.Environment,
		Endpoint:       t.Endpoint,
		Insecure:       t.Insecure,
		SampleRate:     t.SampleRate,
	}
}

// MeterConfig converts the telemetry section for observability.InitMeter.
func (t Telemetry) MeterConfig(serviceName string) *observability.MeterConfig {
	cfg := observability.DefaultMeterConfig(serviceName)
	cfg.ServiceVersion = version.GetShortVersion()
	cfg.Environment = t.Environment
	cfg.Endpoint = t.Endpoint
	cfg.Insecure = t.Insecure
	return cfg
}

// fieldPath renders a validation error's location as it appears in the
// YAML file, e.g. Client.Streaming.DialTimeout -> client.streaming.dial_timeout.
func fieldPath(e validator.FieldError) string {
	path := e.Namespace()
	if i := strings.IndexByte(path, '.'); i >= 0 {
		path = path[i+1:]
	}
	return toSnakeCase(path)
}

func constraintMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "min":
		return "must be at least " + e.Param()
	case "max":
		return "must be at most " + e.Param()
	case "hostname_port":
		return "must be host:port"
	case "oneof":
		return "must be one of: " + e.Param()
	default:
		return "is invalid"
	}
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 && s[i-1] != '.' {
				b.WriteByte('_')
			}
			b.WriteRune(r + 32)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}
