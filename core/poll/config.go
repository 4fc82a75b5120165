package poll

import "time"

// DefaultInterval is the delay used when no interval is configured.
const DefaultInterval = 100 * time.Millisecond

// Config bounds a polling loop.
type Config struct {
	// Interval is the fixed delay between two checks.
	Interval time.Duration `mapstructure:"interval" default:"100ms"`
	// Timeout caps the total wait. Zero disables the deadline; the loop still honors cancellation.
	Timeout time.Duration `mapstructure:"timeout" default:"2m"`
	// MaxAttempts caps the number of checks. Zero means unlimited.
	MaxAttempts uint64 `mapstructure:"max_attempts" default:"0"`
}
