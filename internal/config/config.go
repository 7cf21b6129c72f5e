// Package config defines service configuration structures and loading.
//
// Conventions:
// - Defaults live in New; Load layers an optional file and env on top.
// - External errors are wrapped via this package's sentinels.
package config

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":5000".
	Addr string `koanf:"addr"`

	// SlouchThreshold is the probability cutoff in [0, 1] above which
	// a sample is labeled slouch. Read once at startup; changing it
	// does not relabel history.
	SlouchThreshold float64 `koanf:"slouch_threshold"`

	// MongoURI wins over the credential fields when set.
	MongoURI string `koanf:"mongo_uri"`

	// MongoDB names the database holding the samples and events
	// collections.
	MongoDB string `koanf:"mongo_db"`

	// Atlas-style SRV credentials, used when MongoURI is empty. When
	// neither is configured the service runs on in-memory stores.
	MongoUsername string `koanf:"mongo_username"`
	MongoPassword string `koanf:"mongo_password"`
	MongoHost     string `koanf:"mongo_host"`
	MongoAppName  string `koanf:"mongo_app_name"`

	// SeriesWindowMinutes is the default trailing window for series
	// queries when the caller does not bound one.
	SeriesWindowMinutes int `koanf:"series_window_minutes"`

	// EventsLimit is the default limit for recent-event queries.
	EventsLimit int `koanf:"events_limit"`

	// SampleIntervalSeconds paces the monitoring loop.
	SampleIntervalSeconds int `koanf:"sample_interval_seconds"`

	// APIKey guards the dev ingestion endpoints. Placeholder
	// credential only; not an authentication scheme.
	APIKey string `koanf:"api_key"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:              "info",
		Addr:                  ":5000",
		SlouchThreshold:       0.6,
		MongoDB:               "posture",
		MongoHost:             "",
		MongoAppName:          "RIBS",
		SeriesWindowMinutes:   30,
		EventsLimit:           25,
		SampleIntervalSeconds: 5,
		APIKey:                "change-me",
	}
}
