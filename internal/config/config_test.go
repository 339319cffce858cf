package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if c.Server.Port != 5000 || c.Session.TTL != 15*time.Minute || c.Session.Backend != "memory" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if n, _ := c.MaxUploadBytes(); n != 50_000_000 {
		t.Fatalf("MaxUploadBytes() = %d, want 50000000", n)
	}
	if got := c.Address(); got != "127.0.0.1:5000" {
		t.Fatalf("Address() = %q", got)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keytune.yaml")
	doc := strings.Join([]string{
		"log:",
		"  level: debug",
		"server:",
		"  port: 8080",
		"  max_upload: 2MiB",
		"session:",
		"  ttl: 90s",
		"analysis:",
		"  transposition: nearest",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KEYTUNE_SERVER_WORKERS", "3")
	t.Setenv("KEYTUNE_AUDIO_CHANNELS", "left")

	c, v, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v.ConfigFileUsed() != path {
		t.Fatalf("ConfigFileUsed() = %q", v.ConfigFileUsed())
	}
	if c.Log.Level != "debug" || c.Server.Port != 8080 || c.Session.TTL != 90*time.Second {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Server.Workers != 3 || c.Audio.Channels != "left" {
		t.Fatalf("env values not applied: %+v", c)
	}
	if n, _ := c.MaxUploadBytes(); n != 2<<20 {
		t.Fatalf("MaxUploadBytes() = %d", n)
	}
	if c.Session.Cleanup != time.Minute {
		t.Fatalf("default not kept: cleanup = %v", c.Session.Cleanup)
	}
	opts, err := c.TunerOptions()
	if err != nil || len(opts) != 4 {
		t.Fatalf("TunerOptions() = %d options, %v", len(opts), err)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestLoadWithoutFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())
	c, v, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if v.ConfigFileUsed() != "" && !strings.HasSuffix(v.ConfigFileUsed(), "keytune") {
		t.Fatalf("unexpected config file %q", v.ConfigFileUsed())
	}
	if c.Server.Port != 5000 {
		t.Fatalf("Port = %d", c.Server.Port)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 0 }},
		{"workers", func(c *Config) { c.Server.Workers = 0 }},
		{"upload", func(c *Config) { c.Server.MaxUpload = "lots" }},
		{"zero upload", func(c *Config) { c.Server.MaxUpload = "0B" }},
		{"backend", func(c *Config) { c.Session.Backend = "disk" }},
		{"ttl", func(c *Config) { c.Session.TTL = 0 }},
		{"session memory", func(c *Config) { c.Session.MaxMemory = "plenty" }},
		{"redis address", func(c *Config) { c.Session.Backend = "redis"; c.Session.Redis.Address = "" }},
		{"rate", func(c *Config) { c.RateLimit.Enabled = true; c.RateLimit.RequestsPerSecond = 0 }},
		{"channels", func(c *Config) { c.Audio.Channels = "surround" }},
		{"transposition", func(c *Config) { c.Analysis.Transposition = "wrapped" }},
		{"engine", func(c *Config) { c.Analysis.Engine = "psola" }},
		{"chroma", func(c *Config) { c.Analysis.ChromaMode = "cqt" }},
		{"sample rate", func(c *Config) { c.Analysis.SampleRate = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := Default()
			tc.mutate(c)
			if err := c.Validate(); err == nil {
				t.Fatal("Validate() accepted an invalid config")
			}
		})
	}
}

func TestMaxMemoryBytes(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"", 0},
		{"0", 0},
		{"1GB", 1000 * 1000 * 1000},
		{"256MiB", 256 << 20},
	}
	for _, tc := range tests {
		got, err := SessionConfig{MaxMemory: tc.in}.MaxMemoryBytes()
		if err != nil || got != tc.want {
			t.Fatalf("MaxMemoryBytes(%q) = %d, %v, want %d", tc.in, got, err, tc.want)
		}
	}
	if got, _ := Default().Session.MaxMemoryBytes(); got != 1000*1000*1000 {
		t.Fatalf("default session budget = %d, want 1GB", got)
	}
}

func TestYAMLRoundTrip(t *testing.T) {
	c := Default()
	c.Session.TTL = 5 * time.Minute
	data, err := c.YAML()
	if err != nil {
		t.Fatalf("YAML() error = %v", err)
	}
	if !strings.Contains(string(data), "ttl: 5m0s") {
		t.Fatalf("YAML() missing ttl:\n%s", data)
	}
	var back Config
	if err := yaml.Unmarshal(data, &back); err != nil {
		t.Fatalf("yaml.Unmarshal() error = %v", err)
	}
	if back != *c {
		t.Fatalf("round trip mismatch:\n%+v\n%+v", back, *c)
	}
}
