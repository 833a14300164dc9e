package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads the YAML configuration file at path and returns a validated
// [Config]. Missing fields keep their defaults. It is a convenience wrapper
// around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r over the defaults and
// validates the result. Useful in tests where configs are constructed from
// string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.ListenAddr == "" {
		errs = append(errs, errors.New("server.listen_addr must not be empty"))
	}
	if cfg.Server.MediaDir == "" {
		errs = append(errs, errors.New("server.media_dir must not be empty"))
	}

	if cfg.Annotation.MinRegionLength <= 0 {
		errs = append(errs, fmt.Errorf("annotation.min_region_length must be positive, got %v", cfg.Annotation.MinRegionLength))
	}

	if cfg.Playback.SkipSeconds <= 0 {
		errs = append(errs, fmt.Errorf("playback.skip_seconds must be positive, got %v", cfg.Playback.SkipSeconds))
	}
	if cfg.Playback.BoundaryPollInterval <= 0 {
		errs = append(errs, fmt.Errorf("playback.boundary_poll_interval must be positive, got %v", cfg.Playback.BoundaryPollInterval))
	}
	if cfg.Playback.MinRate <= 0 || cfg.Playback.MaxRate < cfg.Playback.MinRate {
		errs = append(errs, fmt.Errorf("playback rate bounds [%v, %v] are invalid", cfg.Playback.MinRate, cfg.Playback.MaxRate))
	}

	return errors.Join(errs...)
}
