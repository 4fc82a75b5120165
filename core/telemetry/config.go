package telemetry

// Config holds tracing configuration.
type Config struct {
	// Exporter selects where spans go: none, stdout or otlp.
	Exporter string `mapstructure:"exporter" default:"none"`
	// Endpoint is the OTLP/HTTP collector URL. Falls back to OTEL_EXPORTER_OTLP_ENDPOINT.
	Endpoint string `mapstructure:"endpoint" default:""`
	// ServiceName is reported as the service.name resource attribute.
	ServiceName string `mapstructure:"service_name" default:"blob-uploader"`
}

const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterOTLP   = "otlp"
)
