package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileSystem abstracts file probing so tests can fake the search.
type FileSystem interface {
	Exists(path string) bool
	LoadEnv(path string) error
}

// osFileSystem implements FileSystem with real file operations.
type osFileSystem struct{}

func (osFileSystem) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (osFileSystem) LoadEnv(path string) error { return godotenv.Load(path) }

// configSearchPaths lists where fetchbridge.yml is looked for, in order.
var configSearchPaths = []string{
	"./fetchbridge.yml",
	"./fetchbridge.yaml",
	"./config/fetchbridge.yml",
	"../fetchbridge.yml",
	"../config/fetchbridge.yml",
}

// envSearchPaths lists where .env files are looked for, in order.
var envSearchPaths = []string{
	"./.env.fetchbridge",
	"./.env",
	"../.env",
}

// Option adjusts loading.
type Option func(*loader)

type loader struct {
	fs         FileSystem
	configFile string
	envFile    string
}

// WithFileSystem sets a custom filesystem for the search.
func WithFileSystem(fs FileSystem) Option {
	return func(l *loader) { l.fs = fs }
}

// WithConfigFile sets an explicit config file path, skipping the search.
func WithConfigFile(path string) Option {
	return func(l *loader) { l.configFile = path }
}

// WithEnvFile sets an explicit .env file path, skipping the search.
func WithEnvFile(path string) Option {
	return func(l *loader) { l.envFile = path }
}

// Load reads configuration into a File and validates it. Precedence:
// FETCHBRIDGE_* environment variables over .env entries over the YAML
// file over built-in defaults. A missing config file is not an error;
// an explicitly named one that is missing or malformed is.
func Load(opts ...Option) (*File, error) {
	l := loader{fs: osFileSystem{}}
	for _, opt := range opts {
		opt(&l)
	}

	explicitConfig := l.configFile != ""
	if !explicitConfig {
		l.configFile = firstExisting(l.fs, configSearchPaths)
	}
	if l.envFile == "" {
		l.envFile = firstExisting(l.fs, envSearchPaths)
	}

	if l.envFile != "" {
		if err := l.fs.LoadEnv(l.envFile); err != nil {
			return nil, fmt.Errorf("config: loading env file %s: %w", l.envFile, err)
		}
	}

	v := viper.New()
	v.SetEnvPrefix("FETCHBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindKeys(v)

	if l.configFile != "" {
		if explicitConfig && !l.fs.Exists(l.configFile) {
			return nil, fmt.Errorf("config: file %s does not exist", l.configFile)
		}
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", l.configFile, err)
		}
	}

	var file File
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	file.ApplyDefaults()
	if err := file.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

// firstExisting returns the first path the filesystem reports as
// present, or "" when none is.
func firstExisting(fs FileSystem, paths []string) string {
	for _, path := range paths {
		if fs.Exists(path) {
			return path
		}
	}
	return ""
}

// bindKeys registers the known keys so environment variables apply even
// when no config file mentions them.
func bindKeys(v *viper.Viper) {
	for _, key := range []string{
		"client.timeout",
		"client.tls.skip_verify",
		"client.tls.ca_file",
		"client.tls.cert_file",
		"client.tls.key_file",
		"client.tls.server_name",
		"client.tls.min_version",
		"client.streaming.disabled",
		"client.streaming.dial_timeout",
		"client.breaker.max_failures",
		"client.breaker.cool_down",
		"client.breaker.probe_calls",
		"client.rate_limit.rate",
		"client.rate_limit.burst",
		"logging.level",
		"logging.format",
		"logging.output",
		"logging.no_color",
		"logging.timestamp",
		"logging.caller",
		"telemetry.enabled",
		"telemetry.endpoint",
		"telemetry.sample_rate",
		"telemetry.insecure",
		"telemetry.environment",
	} {
		_ = v.BindEnv(key)
	}
}
