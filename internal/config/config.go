// Package config loads the keytune configuration from YAML, environment
// variables and command-line flags through viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cwbudde/algo-keytune/audioio"
	"github.com/cwbudde/algo-keytune/dsp/chroma"
	"github.com/cwbudde/algo-keytune/dsp/pitch"
	"github.com/cwbudde/algo-keytune/keytune"
)

// EnvPrefix prefixes environment overrides, e.g. KEYTUNE_SERVER_PORT.
const EnvPrefix = "KEYTUNE"

// FileName is the base name searched for when no file is given.
const FileName = "keytune"

type LogConfig struct {
	Level     string `mapstructure:"level" yaml:"level"`
	Directory string `mapstructure:"directory" yaml:"directory"`
	JSON      bool   `mapstructure:"json" yaml:"json"`
	Colors    bool   `mapstructure:"colors" yaml:"colors"`
}

type ServerConfig struct {
	BindAddress    string        `mapstructure:"bind_address" yaml:"bind_address"`
	Port           int           `mapstructure:"port" yaml:"port"`
	MaxUpload      string        `mapstructure:"max_upload" yaml:"max_upload"`
	Workers        int           `mapstructure:"workers" yaml:"workers"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" yaml:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	Burst             int     `mapstructure:"burst" yaml:"burst"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address" yaml:"address"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
}

type SessionConfig struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	Cleanup time.Duration `mapstructure:"cleanup" yaml:"cleanup"`
	Redis   RedisConfig   `mapstructure:"redis" yaml:"redis"`

	// MaxMemory bounds the clips held by the memory backend ("1GB"). "0" or
	// empty means unbounded.
	MaxMemory string `mapstructure:"max_memory" yaml:"max_memory"`
}

// MaxMemoryBytes parses session.max_memory. Zero means unbounded.
func (s SessionConfig) MaxMemoryBytes() (int64, error) {
	if strings.TrimSpace(s.MaxMemory) == "" {
		return 0, nil
	}
	n, err := humanize.ParseBytes(s.MaxMemory)
	if err != nil {
		return 0, fmt.Errorf("config: session.max_memory: %w", err)
	}
	return int64(n), nil
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type AudioConfig struct {
	Channels string `mapstructure:"channels" yaml:"channels"`
}

type AnalysisConfig struct {
	Transposition string `mapstructure:"transposition" yaml:"transposition"`
	Engine        string `mapstructure:"engine" yaml:"engine"`
	ChromaMode    string `mapstructure:"chroma_mode" yaml:"chroma_mode"`
	SampleRate    int    `mapstructure:"sample_rate" yaml:"sample_rate"`
}

// Config is the complete keytune configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Audio     AudioConfig     `mapstructure:"audio" yaml:"audio"`
	Analysis  AnalysisConfig  `mapstructure:"analysis" yaml:"analysis"`
}

// SetDefaults registers every default on v. Keys without a default are not
// picked up from the environment.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.directory", "")
	v.SetDefault("log.json", false)
	v.SetDefault("log.colors", false)

	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.max_upload", "50MB")
	v.SetDefault("server.workers", runtime.NumCPU())
	v.SetDefault("server.request_timeout", 2*time.Minute)

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests_per_second", 1.0)
	v.SetDefault("rate_limit.burst", 10)

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 15*time.Minute)
	v.SetDefault("session.cleanup", time.Minute)
	v.SetDefault("session.max_memory", "1GB")
	v.SetDefault("session.redis.address", "localhost:6379")
	v.SetDefault("session.redis.password", "")
	v.SetDefault("session.redis.db", 0)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("audio.channels", "mix")

	v.SetDefault("analysis.transposition", "literal")
	v.SetDefault("analysis.engine", "spectral")
	v.SetDefault("analysis.chroma_mode", "cens")
	v.SetDefault("analysis.sample_rate", 0)
}

// Default returns the configuration with every default applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		panic(err)
	}
	return c
}

// NewViper returns a viper instance with defaults, environment overrides
// and the config file search path set up. An empty path searches the
// working directory and $HOME/.config/keytune.
func NewViper(path string) *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(FileName)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "keytune"))
		}
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Read reads the config file into v. A missing file is only an error when
// it was named explicitly.
func Read(v *viper.Viper) error {
	err := v.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return fmt.Errorf("config: reading %s: %w", v.ConfigFileUsed(), err)
	}
	return nil
}

// Decode unmarshals and validates the settings held by v.
func Decode(v *viper.Viper) (*Config, error) {
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load reads, decodes and validates the configuration.
func Load(path string) (*Config, *viper.Viper, error) {
	v := NewViper(path)
	if err := Read(v); err != nil {
		return nil, nil, err
	}
	c, err := Decode(v)
	if err != nil {
		return nil, nil, err
	}
	return c, v, nil
}

// Validate rejects values the service cannot run with.
func (c *Config) Validate() error {
	if _, err := c.MaxUploadBytes(); err != nil {
		return err
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	if c.Server.Workers <= 0 {
		return fmt.Errorf("config: server.workers must be > 0: %d", c.Server.Workers)
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("config: server.request_timeout must be >= 0: %v", c.Server.RequestTimeout)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("config: rate_limit needs requests_per_second > 0 and burst > 0")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: unknown session.backend %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: session.ttl must be > 0: %v", c.Session.TTL)
	}
	if _, err := c.Session.MaxMemoryBytes(); err != nil {
		return err
	}
	if c.Session.Backend == "redis" && c.Session.Redis.Address == "" {
		return fmt.Errorf("config: session.redis.address is required for the redis backend")
	}
	if _, err := audioio.ParseChannelMode(c.Audio.Channels); err != nil {
		return fmt.Errorf("config: audio.channels: %w", err)
	}
	if _, err := keytune.ParseTransposition(c.Analysis.Transposition); err != nil {
		return fmt.Errorf("config: analysis.transposition: %w", err)
	}
	if _, err := pitch.ParseEngine(c.Analysis.Engine); err != nil {
		return fmt.Errorf("config: analysis.engine: %w", err)
	}
	if _, err := chroma.ParseMode(c.Analysis.ChromaMode); err != nil {
		return fmt.Errorf("config: analysis.chroma_mode: %w", err)
	}
	if c.Analysis.SampleRate < 0 {
		return fmt.Errorf("config: analysis.sample_rate must be >= 0: %d", c.Analysis.SampleRate)
	}
	return nil
}

// MaxUploadBytes parses server.max_upload ("50MB", "512KiB", ...).
func (c *Config) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(c.Server.MaxUpload)
	if err != nil {
		return 0, fmt.Errorf("config: server.max_upload: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("config: server.max_upload must be > 0")
	}
	return int64(n), nil
}

// Address returns host:port for the HTTP listener.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// TunerOptions translates the analysis section into keytune options.
func (c *Config) TunerOptions() ([]keytune.Option, error) {
	tr, err := keytune.ParseTransposition(c.Analysis.Transposition)
	if err != nil {
		return nil, err
	}
	engine, err := pitch.ParseEngine(c.Analysis.Engine)
	if err != nil {
		return nil, err
	}
	mode, err := chroma.ParseMode(c.Analysis.ChromaMode)
	if err != nil {
		return nil, err
	}
	return []keytune.Option{
		keytune.WithTransposition(tr),
		keytune.WithEngine(engine),
		keytune.WithChromaMode(mode),
		keytune.WithAnalysisRate(c.Analysis.SampleRate),
	}, nil
}

// ChannelMode returns the parsed audio.channels value.
func (c *Config) ChannelMode() audioio.ChannelMode {
	m, _ := audioio.ParseChannelMode(c.Audio.Channels)
	return m
}

// YAML renders c as a YAML document.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
