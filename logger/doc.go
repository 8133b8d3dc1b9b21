// Package logger provides structured logging for fetchbridge using zerolog.
//
// It supports JSON and console output, log level configuration, and
// component-scoped loggers with structured fields. The dispatcher and both
// transports log through an injected *Logger rather than ambient globals, so
// embedding applications control where diagnostics go.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("socket")
//	log.Warn("stream interrupted", logger.Fields(
//	    logger.FieldURL, url,
//	    logger.FieldError, err.Error(),
//	))
package logger
