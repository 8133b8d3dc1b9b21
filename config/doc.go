// Package config loads fetchbridge configuration from YAML files, .env
// files, and FETCHBRIDGE_* environment variables.
//
// The config file is searched for as fetchbridge.yml next to the
// process, under ./config/, and one directory up. Environment variables
// override .env entries, which override the file, which overrides the
// built-in defaults.
//
// # Usage
//
//	file, err := config.Load()
//	if err != nil {
//	    return err
//	}
//	client, err := file.Build()
//
// Environment variables use underscore-separated paths, for example
// FETCHBRIDGE_CLIENT_TIMEOUT=10s or FETCHBRIDGE_LOGGING_LEVEL=debug.
package config
