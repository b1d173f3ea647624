// Package config loads search settings from defaults, an optional YAML
// file, OMNIVANITY_* environment variables and bound command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Amr-9/omnivanity/internal/logging"
	"github.com/Amr-9/omnivanity/pkg/generator"
	"github.com/Amr-9/omnivanity/pkg/kernel"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "OMNIVANITY"

// Config is the flat on-disk and command-line configuration.
type Config struct {
	Network         string        `mapstructure:"network"`
	AddressType     string        `mapstructure:"address_type"`
	Pattern         string        `mapstructure:"pattern"`
	Mode            string        `mapstructure:"mode"`
	CaseInsensitive bool          `mapstructure:"case_insensitive"`
	Backend         string        `mapstructure:"backend"`
	Lanes           int           `mapstructure:"lanes"`
	WorkgroupSize   int           `mapstructure:"workgroup_size"`
	KeysPerLane     int64         `mapstructure:"keys_per_lane"`
	Workers         int           `mapstructure:"workers"`
	MaxAttempts     uint64        `mapstructure:"max_attempts"`
	MaxDuration     time.Duration `mapstructure:"max_duration"`
	Output          string        `mapstructure:"output"`
	JSON            bool          `mapstructure:"json"`
	Log             LogConfig     `mapstructure:"log"`

	loadedFrom string
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// SetDefaults registers the default for every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("network", "ethereum")
	v.SetDefault("address_type", "default")
	v.SetDefault("pattern", "")
	v.SetDefault("mode", "prefix")
	v.SetDefault("case_insensitive", false)
	v.SetDefault("backend", string(kernel.KindAuto))
	v.SetDefault("lanes", generator.DefaultLanes)
	v.SetDefault("workgroup_size", kernel.DefaultWorkgroupSize)
	v.SetDefault("keys_per_lane", generator.DefaultKeysPerLane)
	v.SetDefault("workers", 0)
	v.SetDefault("max_attempts", 0)
	v.SetDefault("max_duration", time.Duration(0))
	v.SetDefault("output", "wallet.txt")
	v.SetDefault("json", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads path (when non-empty) into v and decodes the merged settings.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	cfg.loadedFrom = v.ConfigFileUsed()
	return &cfg, nil
}

// LoadedFrom returns the config file that was read, if any.
func (c *Config) LoadedFrom() string { return c.loadedFrom }

// Validate rejects settings no search can run with.
func (c *Config) Validate() error {
	var errs []error
	if _, err := generator.ParseNetwork(c.Network); err != nil {
		errs = append(errs, err)
	}
	if _, err := generator.ParseAddressType(c.AddressType); err != nil {
		errs = append(errs, err)
	}
	if _, err := kernel.ParseMatchMode(strings.ToLower(c.Mode)); err != nil {
		errs = append(errs, err)
	}
	if _, err := kernel.ParseKind(c.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Lanes <= 0 {
		errs = append(errs, fmt.Errorf("lanes must be positive, got %d", c.Lanes))
	}
	if c.WorkgroupSize < 0 {
		errs = append(errs, fmt.Errorf("workgroup_size must not be negative, got %d", c.WorkgroupSize))
	}
	if c.KeysPerLane <= 0 || c.KeysPerLane > math.MaxUint32 {
		errs = append(errs, fmt.Errorf("keys_per_lane must be in [1, %d], got %d", uint64(math.MaxUint32), c.KeysPerLane))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.MaxDuration < 0 {
		errs = append(errs, fmt.Errorf("max_duration must not be negative, got %s", c.MaxDuration))
	}
	if _, err := c.LogLevel(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// ToGenerator converts the validated settings into a search configuration.
func (c *Config) ToGenerator() (*generator.Config, error) {
	network, err := generator.ParseNetwork(c.Network)
	if err != nil {
		return nil, err
	}
	addrType, err := generator.ParseAddressType(c.AddressType)
	if err != nil {
		return nil, err
	}
	mode, err := kernel.ParseMatchMode(strings.ToLower(c.Mode))
	if err != nil {
		return nil, err
	}
	kind, err := kernel.ParseKind(c.Backend)
	if err != nil {
		return nil, err
	}
	if c.KeysPerLane <= 0 || c.KeysPerLane > math.MaxUint32 {
		return nil, fmt.Errorf("keys_per_lane out of range: %d", c.KeysPerLane)
	}

	gc := &generator.Config{
		Network:         network,
		AddressType:     addrType,
		Mode:            mode,
		CaseInsensitive: c.CaseInsensitive,
		Backend:         kind,
		Lanes:           c.Lanes,
		WorkgroupSize:   c.WorkgroupSize,
		KeysPerLane:     uint32(c.KeysPerLane),
		Workers:         c.Workers,
		MaxAttempts:     c.MaxAttempts,
		MaxDuration:     c.MaxDuration,
	}
	gc.Pattern = gc.Layout().TrimPattern(c.Pattern)
	return gc, nil
}

// LogLevel parses the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	return logging.ParseLevel(c.Log.Level)
}

// NewLogger builds the configured logger writing to w.
func (c *Config) NewLogger(w io.Writer) (*logging.Logger, error) {
	level, err := c.LogLevel()
	if err != nil {
		return nil, err
	}
	return logging.New(w, level, strings.ToLower(c.Log.Format))
}
