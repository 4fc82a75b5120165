// Package telemetry wires OpenTelemetry tracing for the uploader.
//
// Init installs a global tracer provider whose exporter is chosen by
// Config.Exporter: "none" discards spans, "stdout" pretty-prints them to the
// given writer and "otlp" ships them to an OTLP/HTTP collector. Callers defer
// the returned shutdown function to flush pending spans.
package telemetry
