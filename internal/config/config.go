// Package config provides the configuration schema and loader for the
// labelwave annotation server.
package config

import "time"

// LogLevel controls log verbosity for the labelwave server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for labelwave.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Annotation AnnotationConfig `yaml:"annotation"`
	Playback   PlaybackConfig   `yaml:"playback"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MediaDir is the directory audio files are loaded from.
	MediaDir string `yaml:"media_dir"`
}

// AnnotationConfig tunes the region model.
type AnnotationConfig struct {
	// MinRegionLength is the minimum region length in seconds. Drags
	// shorter than this are discarded. Default: 1.0.
	MinRegionLength float64 `yaml:"min_region_length"`
}

// PlaybackConfig tunes the transport behaviour.
type PlaybackConfig struct {
	// SkipSeconds is the skip-forward/back distance. Default: 10.
	SkipSeconds float64 `yaml:"skip_seconds"`

	// BoundaryPollInterval is the cadence of the region-end check while a
	// region plays. Default: 25ms.
	BoundaryPollInterval time.Duration `yaml:"boundary_poll_interval"`

	// MinRate and MaxRate bound the playback-rate control.
	// Defaults: 0.5 and 2.0.
	MinRate float64 `yaml:"min_rate"`
	MaxRate float64 `yaml:"max_rate"`
}

// Default returns a config populated with the standard defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   LogInfo,
			MediaDir:   "media",
		},
		Annotation: AnnotationConfig{
			MinRegionLength: 1.0,
		},
		Playback: PlaybackConfig{
			SkipSeconds:          10,
			BoundaryPollInterval: 25 * time.Millisecond,
			MinRate:              0.5,
			MaxRate:              2.0,
		},
	}
}
