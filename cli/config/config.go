package config

import (
	"fmt"
	"time"
)

// Config represents a packscan.yaml configuration file.
// All values are optional and act as defaults for CLI flags.
// CLI flags always override config values.
type Config struct {
	HTTPAddr    string        `yaml:"http_addr"`
	WorkDir     string        `yaml:"work_dir"`
	LicenseDir  string        `yaml:"license_dir"`
	SnapshotDir string        `yaml:"snapshot_dir"`
	Workers     int           `yaml:"workers"`
	Extensions  []string      `yaml:"extensions"`
	Vendor      VendorConfig  `yaml:"vendor"`
	Remote      RemoteConfig  `yaml:"remote"`
	Store       StoreConfig   `yaml:"store"`
	Adapter     AdapterConfig `yaml:"adapter"`
	// Licenses seeds the selectable license table at startup.
	Licenses []LicenseConfig `yaml:"licenses"`
}

// VendorConfig drives manifest vendor classification and the license file
// preamble.
type VendorConfig struct {
	Name   string `yaml:"name"`
	Prefix string `yaml:"prefix"`
	Token  string `yaml:"token"`
}

// RemoteConfig selects where uploaded packs are fetched from.
type RemoteConfig struct {
	// Backend is "local" or "s3".
	Backend string `yaml:"backend"`
	// Path is the drop directory (local) or "bucket/prefix" (s3).
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	// Backend is "sqlite" or "memory".
	Backend string `yaml:"backend"`
	// Path is the sqlite database file.
	Path string `yaml:"path"`
}

// AdapterConfig holds completion-event adapter defaults.
type AdapterConfig struct {
	// Type is "redis", "webhook", or empty to disable events.
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// LicenseConfig is one seeded license definition.
type LicenseConfig struct {
	Key  string `yaml:"key"`
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// ApplyDefaults fills unset fields with deployment defaults.
func (c *Config) ApplyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.WorkDir == "" {
		c.WorkDir = "work"
	}
	if c.LicenseDir == "" {
		c.LicenseDir = "licenses"
	}
	if c.SnapshotDir == "" {
		c.SnapshotDir = "snapshots"
	}
	if c.Remote.Backend == "" {
		c.Remote.Backend = "local"
	}
	if c.Remote.Backend == "local" && c.Remote.Path == "" {
		c.Remote.Path = "drop"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "sqlite"
	}
	if c.Store.Backend == "sqlite" && c.Store.Path == "" {
		c.Store.Path = "packscan.db"
	}
}

// Validate rejects combinations the process cannot start with.
func (c *Config) Validate() error {
	switch c.Remote.Backend {
	case "local", "s3":
	default:
		return fmt.Errorf("unknown remote backend %q", c.Remote.Backend)
	}
	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.Adapter.Type {
	case "", "redis", "webhook":
	default:
		return fmt.Errorf("unknown adapter type %q", c.Adapter.Type)
	}
	if c.Adapter.Type != "" && c.Adapter.URL == "" {
		return fmt.Errorf("adapter type %q requires a url", c.Adapter.Type)
	}
	return nil
}
