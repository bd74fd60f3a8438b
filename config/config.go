// Package config loads wgcompute settings from defaults, a YAML file and WGCOMPUTE_*
// environment variables.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/openfluke/wgcompute/gpu"
)

// EnvPrefix is the prefix of environment overrides, e.g. WGCOMPUTE_DISPATCH_TIMEOUT.
const EnvPrefix = "WGCOMPUTE"

// Config represents the application configuration
type Config struct {
	Device   DeviceConfig   `mapstructure:"device"`
	Dispatch DispatchConfig `mapstructure:"dispatch"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type DeviceConfig struct {
	PowerPreference string `mapstructure:"power_preference"`
	Adapter         string `mapstructure:"adapter"`
	ForceFallback   bool   `mapstructure:"force_fallback"`
}

type DispatchConfig struct {
	Timeout      time.Duration `mapstructure:"timeout"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Verify       bool          `mapstructure:"verify"`
}

type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	File    string `mapstructure:"file"`
	Console bool   `mapstructure:"console"`
}

// DefaultConfig returns configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			PowerPreference: gpu.PowerHighPerformance,
		},
		Dispatch: DispatchConfig{
			Timeout:      gpu.DefaultTimeout,
			PollInterval: gpu.DefaultPollInterval,
		},
		Logging: LoggingConfig{
			Level:   "warn",
			Console: true,
		},
	}
}

// Load reads configuration into v and returns it. cfgFile overrides the search of
// $HOME/.wgcompute and the working directory for config.yaml. Flags bound to v before
// the call take precedence over everything else.
func Load(v *viper.Viper, cfgFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}
	cfg := DefaultConfig()
	setDefaults(v, cfg)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".wgcompute"))
		}
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "unmarshaling config")
	}
	cfg.Logging.File = expandPath(cfg.Logging.File)

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating config")
	}
	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	validPower := []string{gpu.PowerHighPerformance, gpu.PowerLowPower, ""}
	if !contains(validPower, c.Device.PowerPreference) {
		return errors.Errorf("device.power_preference must be one of: %q", validPower)
	}
	if c.Dispatch.Timeout <= 0 {
		return errors.New("dispatch.timeout must be positive")
	}
	if c.Dispatch.PollInterval <= 0 || c.Dispatch.PollInterval > c.Dispatch.Timeout {
		return errors.New("dispatch.poll_interval must be positive and no longer than dispatch.timeout")
	}
	validLevels := []string{"trace", "debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		return errors.Errorf("logging.level must be one of: %v", validLevels)
	}
	return nil
}

// GPUOptions converts the device section to adapter selection options.
func (c *Config) GPUOptions() gpu.Options {
	return gpu.Options{
		PowerPreference: c.Device.PowerPreference,
		Adapter:         c.Device.Adapter,
		ForceFallback:   c.Device.ForceFallback,
	}
}

// DispatchOptions converts the dispatch section to dispatcher options.
func (c *Config) DispatchOptions() []gpu.Option {
	return []gpu.Option{
		gpu.WithTimeout(c.Dispatch.Timeout),
		gpu.WithPollInterval(c.Dispatch.PollInterval),
	}
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, path[2:])
	}
	return os.ExpandEnv(path)
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device.power_preference", cfg.Device.PowerPreference)
	v.SetDefault("device.adapter", cfg.Device.Adapter)
	v.SetDefault("device.force_fallback", cfg.Device.ForceFallback)

	v.SetDefault("dispatch.timeout", cfg.Dispatch.Timeout)
	v.SetDefault("dispatch.poll_interval", cfg.Dispatch.PollInterval)
	v.SetDefault("dispatch.verify", cfg.Dispatch.Verify)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.console", cfg.Logging.Console)
}
