// Package config provides configuration management for the uploader.
//
// It utilizes Viper for loading configuration from a .env file, environment
// variables and command-line flags.
//
// # Configuration Structure
//
// The Config struct is the central repository for all application settings, divided into subsections:
//   - Storage: provider endpoint, region, TLS, filesystem base dir, transient delay
//   - Upload: local file, container name and polling bounds
//   - Log: logging level and format
//   - Telemetry: trace exporter and collector endpoint
//
// Defaults come from the `default` struct tags. Environment variables use the
// upper-cased key path with underscores (UPLOAD_POLL_INTERVAL=250ms). Flags
// registered with BindFlag win over both when set explicitly.
//
// # Usage
//
//	cfg, err := config.LoadConfig(".", cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Upload.Container)
package config
