package storage

import "time"

// Config holds provider options that are not part of the identity/credential pair.
type Config struct {
	// Endpoint overrides the provider's default service URL (e.g. a MinIO or LocalStack host).
	Endpoint string `mapstructure:"endpoint" default:""`
	// Region is the location containers are created in (e.g., us-east-1).
	Region string `mapstructure:"region" default:"us-east-1"`
	// UseSSL indicates whether to use SSL/TLS for connections.
	UseSSL bool `mapstructure:"use_ssl" default:"true"`
	// PathStyle forces path-style bucket addressing for S3-compatible endpoints.
	PathStyle bool `mapstructure:"path_style" default:"false"`
	// TimeoutSeconds is the connection timeout in seconds.
	TimeoutSeconds int `mapstructure:"timeout_seconds" default:"30"`
	// BaseDir is the root directory of the filesystem provider.
	BaseDir string `mapstructure:"base_dir" default:"blobstore"`
	// ConsistencyDelay is the simulated propagation delay of the transient provider.
	ConsistencyDelay time.Duration `mapstructure:"consistency_delay" default:"0s"`
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.TimeoutSeconds) * time.Second
}
