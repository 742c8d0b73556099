// Package config loads and validates the weather bridge's TOML
// configuration, following the teacher's section-per-concern layout and
// load/validate lifecycle.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the top-level application configuration.
type Config struct {
	Logging         LoggingConfig         `toml:"logging"`
	Stations        StationsConfig        `toml:"stations"`
	Selector        SelectorConfig        `toml:"station_selection"`
	Fetch           FetchConfig           `toml:"fetch"`
	Combining       CombiningConfig       `toml:"weather_combining"`
	Smoothing       SmoothingConfig       `toml:"smoothing"`
	Engine          EngineConfig          `toml:"engine"`
	Sink            SinkConfig            `toml:"sink"`
	SimulatedAircraft SimulatedAircraftConfig `toml:"simulated_aircraft"`
}

// LoggingConfig controls the pkg/logger facade.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // console or json
}

// StationsConfig locates the station database used to build the registry.
type StationsConfig struct {
	DatabaseCSVPath string `toml:"database_csv_path"`
}

// SelectorConfig mirrors weather.SelectorConfig with toml tags; main.go
// converts it 1:1 to avoid the weather package importing config.
type SelectorConfig struct {
	RadiusNM         float64 `toml:"radius_nm"`
	MaxStations      int     `toml:"max_stations"`
	FallbackToGlobal bool    `toml:"fallback_to_global"`
}

// FetchConfig mirrors weather.FetchClientConfig.
type FetchConfig struct {
	APIBaseURL            string  `toml:"api_base_url"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	MaxRetries            int     `toml:"max_retries"`
	RatePerSecond         float64 `toml:"rate_per_second"`
	Burst                 int     `toml:"burst"`
}

// CombiningConfig mirrors weather.CombineConfig.
type CombiningConfig struct {
	Mode                    string  `toml:"combining_mode"`
	TafFallbackStaleSeconds float64 `toml:"taf_fallback_stale_seconds"`
}

// SmoothingConfig mirrors weather.SmoothingConfig.
type SmoothingConfig struct {
	TransitionMode            string  `toml:"transition_mode"`
	TransitionIntervalSeconds float64 `toml:"transition_interval_seconds"`

	MaxWindDirChangeDeg   float64 `toml:"max_wind_dir_change_deg"`
	MaxWindSpeedChangeKt  float64 `toml:"max_wind_speed_change_kt"`
	MaxQNHChangeHpa       float64 `toml:"max_qnh_change_hpa"`
	MaxVisibilityChangeSM float64 `toml:"max_visibility_change_sm"`

	WindDirStepDeg  float64 `toml:"wind_dir_step_deg"`
	WindSpeedStepKt float64 `toml:"wind_speed_step_kt"`
	QNHStepHpa      float64 `toml:"qnh_step_hpa"`
	VisibilityStepM float64 `toml:"visibility_step_m"`

	CloudChangeThresholdFt float64 `toml:"cloud_change_threshold_ft"`

	ApproachFreezeAltFt float64 `toml:"approach_freeze_alt_ft"`

	BigChangeWindDirDeg   float64 `toml:"big_change_wind_dir_deg"`
	BigChangeWindSpeedKt  float64 `toml:"big_change_wind_speed_kt"`
	BigChangeQNHHpa       float64 `toml:"big_change_qnh_hpa"`
	BigChangeVisibilitySM float64 `toml:"big_change_visibility_sm"`
	VeryBigWindSpeedKt    float64 `toml:"very_big_wind_speed_kt"`
	VeryBigVisibilitySM   float64 `toml:"very_big_visibility_sm"`
}

// EngineConfig controls the orchestrator's tick cadence.
type EngineConfig struct {
	TickIntervalSeconds float64 `toml:"tick_interval_seconds"`
	FetchTimeoutSeconds float64 `toml:"fetch_timeout_seconds"`
}

// SinkConfig mirrors weather.MmapSinkConfig.
type SinkConfig struct {
	Path        string `toml:"path"`
	RegionBytes int    `toml:"region_bytes"`
}

// SimulatedAircraftConfig seeds the dev-mode aircraft source.
type SimulatedAircraftConfig struct {
	Enabled    bool    `toml:"enabled"`
	Lat        float64 `toml:"lat"`
	Lon        float64 `toml:"lon"`
	AltitudeFt float64 `toml:"altitude_ft"`
	HeadingDeg float64 `toml:"heading_deg"`
	SpeedKt    float64 `toml:"speed_kt"`
}

// Default returns the reference default configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "console"},
		Stations: StationsConfig{
			DatabaseCSVPath: "data/stations.csv",
		},
		Selector: SelectorConfig{
			RadiusNM:         50,
			MaxStations:      3,
			FallbackToGlobal: true,
		},
		Fetch: FetchConfig{
			APIBaseURL:            "https://aviationweather.gov/api/data",
			RequestTimeoutSeconds: 10,
			MaxRetries:            2,
			RatePerSecond:         2,
			Burst:                 4,
		},
		Combining: CombiningConfig{
			Mode:                    "metar_taf_fallback",
			TafFallbackStaleSeconds: 300,
		},
		Smoothing: SmoothingConfig{
			TransitionMode:            "step_limited",
			TransitionIntervalSeconds: 30,
			MaxWindDirChangeDeg:       5,
			MaxWindSpeedChangeKt:      2,
			MaxQNHChangeHpa:           0.5,
			MaxVisibilityChangeSM:     0.5,
			WindDirStepDeg:            5,
			WindSpeedStepKt:           2,
			QNHStepHpa:                0.5,
			VisibilityStepM:           500,
			CloudChangeThresholdFt:    1000,
			ApproachFreezeAltFt:       1000,
			BigChangeWindDirDeg:       30,
			BigChangeWindSpeedKt:      10,
			BigChangeQNHHpa:           5,
			BigChangeVisibilitySM:     5,
			VeryBigWindSpeedKt:        20,
			VeryBigVisibilitySM:       10,
		},
		Engine: EngineConfig{
			TickIntervalSeconds: 1,
			FetchTimeoutSeconds: 10,
		},
		Sink: SinkConfig{
			Path:        "/dev/shm/wxbridge.metar",
			RegionBytes: 256,
		},
	}
}

// Load reads and decodes a TOML config file, starting from Default() so
// any section the file omits keeps its reference default.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}
	return &cfg, nil
}

// LoadWithFallback checks a preferred path, then conventional fallback
// locations, returning the reference defaults if none exist.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{preferredPath, "configs/wxbridge.toml", "wxbridge.toml"}

	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path == "" || seen[path] {
			continue
		}
		seen[path] = true
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	cfg := Default()
	return &cfg, nil
}

// Validate checks every section for internally consistent, in-range
// values, returning a descriptive error for the first problem found.
func (c *Config) Validate() error {
	if c.Stations.DatabaseCSVPath == "" {
		return fmt.Errorf("stations.database_csv_path cannot be empty")
	}

	if c.Selector.RadiusNM <= 0 {
		return fmt.Errorf("station_selection.radius_nm must be greater than 0")
	}
	if c.Selector.MaxStations <= 0 {
		return fmt.Errorf("station_selection.max_stations must be greater than 0")
	}

	if c.Fetch.APIBaseURL == "" {
		return fmt.Errorf("fetch.api_base_url cannot be empty")
	}
	if c.Fetch.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.request_timeout_seconds must be greater than 0")
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must be 0 or greater")
	}
	if c.Fetch.RatePerSecond <= 0 {
		return fmt.Errorf("fetch.rate_per_second must be greater than 0")
	}

	switch c.Combining.Mode {
	case "metar_only", "metar_taf_fallback", "metar_taf_assist":
	default:
		return fmt.Errorf("weather_combining.combining_mode must be one of metar_only, metar_taf_fallback, metar_taf_assist, got %q", c.Combining.Mode)
	}
	if c.Combining.Mode == "metar_taf_fallback" && c.Combining.TafFallbackStaleSeconds <= 0 {
		return fmt.Errorf("weather_combining.taf_fallback_stale_seconds must be greater than 0")
	}

	switch c.Smoothing.TransitionMode {
	case "step_limited", "time_based":
	default:
		return fmt.Errorf("smoothing.transition_mode must be step_limited or time_based, got %q", c.Smoothing.TransitionMode)
	}
	if c.Smoothing.TransitionMode == "time_based" && c.Smoothing.TransitionIntervalSeconds <= 0 {
		return fmt.Errorf("smoothing.transition_interval_seconds must be greater than 0 for time_based mode")
	}
	if c.Smoothing.ApproachFreezeAltFt < 0 {
		return fmt.Errorf("smoothing.approach_freeze_alt_ft must be 0 or greater")
	}
	if c.Smoothing.MaxWindDirChangeDeg < 0 || c.Smoothing.MaxWindDirChangeDeg > 180 {
		return fmt.Errorf("smoothing.max_wind_dir_change_deg must be within [0, 180]")
	}

	if c.Engine.TickIntervalSeconds <= 0 {
		return fmt.Errorf("engine.tick_interval_seconds must be greater than 0")
	}
	if c.Engine.FetchTimeoutSeconds <= 0 {
		return fmt.Errorf("engine.fetch_timeout_seconds must be greater than 0")
	}

	if c.Sink.RegionBytes != 0 && c.Sink.RegionBytes < 256 {
		return fmt.Errorf("sink.region_bytes must be at least 256 if set")
	}

	return nil
}
