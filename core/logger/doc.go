// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production). Logs are written to stderr so they never mix
// with the progress lines the uploader prints on stdout.
//
// # Run correlation
//
// Every invocation of the uploader gets a run ID. WithRunID attaches it to the
// logger so all entries of one upload lifecycle can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log = logger.WithRunID(log, uuid.NewString())
//	log.Info("Upload started")
package logger
