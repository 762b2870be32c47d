package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "packscan.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
http_addr: ":9090"
work_dir: /var/lib/packscan/work
license_dir: /var/lib/packscan/licenses
snapshot_dir: /var/lib/packscan/snapshots
workers: 8
extensions: [".jar", ".mar", ".war"]
vendor:
  name: acme
  prefix: org.acme
  token: acme
remote:
  backend: s3
  path: packs-bucket/uploads
  region: eu-west-1
  s3_path_style: true
store:
  backend: sqlite
  path: /var/lib/packscan/packscan.db
adapter:
  type: redis
  url: redis://localhost:6379
  channel: packscan:events
  timeout: 10s
licenses:
  - key: apache2
    name: Apache License 2.0
    url: https://www.apache.org/licenses/LICENSE-2.0
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.HTTPAddr != ":9090" || cfg.Workers != 8 {
		t.Errorf("server settings = %q/%d", cfg.HTTPAddr, cfg.Workers)
	}
	if len(cfg.Extensions) != 3 || cfg.Extensions[2] != ".war" {
		t.Errorf("extensions = %v", cfg.Extensions)
	}
	if cfg.Vendor.Name != "acme" || cfg.Vendor.Prefix != "org.acme" {
		t.Errorf("vendor = %+v", cfg.Vendor)
	}
	if cfg.Remote.Backend != "s3" || cfg.Remote.Path != "packs-bucket/uploads" || !cfg.Remote.S3PathStyle {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Adapter.Type != "redis" || cfg.Adapter.Timeout.Duration != 10*time.Second {
		t.Errorf("adapter = %+v", cfg.Adapter)
	}
	if len(cfg.Licenses) != 1 || cfg.Licenses[0].Key != "apache2" {
		t.Errorf("licenses = %+v", cfg.Licenses)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("PACKSCAN_TEST_BUCKET", "secret-bucket")
	path := writeConfig(t, `
remote:
  backend: s3
  path: ${PACKSCAN_TEST_BUCKET}/uploads
  region: ${PACKSCAN_TEST_REGION:-us-east-1}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Remote.Path != "secret-bucket/uploads" {
		t.Errorf("path = %q", cfg.Remote.Path)
	}
	if cfg.Remote.Region != "us-east-1" {
		t.Errorf("region default = %q", cfg.Remote.Region)
	}
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeConfig(t, `
http_adr: ":9090"
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for a typoed key")
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty config with defaults must validate: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "remote: [not a mapping")
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, `
adapter:
  type: webhook
  url: http://example.com
  timeout: soon
`)
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.HTTPAddr != ":8080" {
		t.Errorf("http_addr = %q", cfg.HTTPAddr)
	}
	if cfg.Remote.Backend != "local" || cfg.Remote.Path != "drop" {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Store.Backend != "sqlite" || cfg.Store.Path != "packscan.db" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults must validate: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"unknown remote backend", func(c *Config) { c.Remote.Backend = "ftp" }, true},
		{"unknown store backend", func(c *Config) { c.Store.Backend = "mongo" }, true},
		{"unknown adapter type", func(c *Config) { c.Adapter.Type = "kafka" }, true},
		{"adapter without url", func(c *Config) { c.Adapter.Type = "webhook" }, true},
		{"memory store", func(c *Config) { c.Store.Backend = "memory" }, false},
		{"webhook adapter", func(c *Config) {
			c.Adapter.Type = "webhook"
			c.Adapter.URL = "http://example.com/hook"
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg Config
			cfg.ApplyDefaults()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
