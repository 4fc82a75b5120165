package config

import (
	"reflect"
	"strings"

	"blob-uploader/core/logger"
	"blob-uploader/core/storage"
	"blob-uploader/core/telemetry"
	"blob-uploader/feature/upload"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagKeyAnnotation marks a pflag with the config key it overrides.
const flagKeyAnnotation = "config_key"

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Storage holds provider options (endpoint, region, local directories).
	Storage storage.Config `mapstructure:"storage"`
	// Upload holds the workflow settings (file, container, polling bounds).
	Upload upload.Config `mapstructure:"upload"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Telemetry holds configuration for tracing.
	Telemetry telemetry.Config `mapstructure:"telemetry"`
}

// LoadConfig loads configuration from the .env file, environment variables
// and any flags of fs registered with BindFlag, in increasing precedence.
func LoadConfig(path string, fs *pflag.FlagSet) (*Config, error) {
	// 1. Load .env file if it exists
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. UPLOAD_CONTAINER -> upload.container)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		var bindErr error
		fs.VisitAll(func(f *pflag.Flag) {
			keys, ok := f.Annotations[flagKeyAnnotation]
			if !ok || len(keys) == 0 || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(keys[0], f)
		})
		if bindErr != nil {
			return nil, bindErr
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// BindFlag ties the flag called name to a config key, so that an explicitly
// set flag overrides the environment and defaults.
func BindFlag(fs *pflag.FlagSet, name, key string) error {
	return fs.SetAnnotation(name, flagKeyAnnotation, []string{key})
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	// If it's a pointer, get the element
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")

		// Skip if no tag
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		// If it's a nested struct, recurse
		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
