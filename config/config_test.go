package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openfluke/wgcompute/gpu"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5*time.Second, cfg.Dispatch.Timeout)
	assert.Equal(t, time.Millisecond, cfg.Dispatch.PollInterval)
	assert.Equal(t, gpu.Options{PowerPreference: gpu.PowerHighPerformance}, cfg.GPUOptions())
	assert.Len(t, cfg.DispatchOptions(), 2)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
device:
  power_preference: low-power
  adapter: intel
dispatch:
  timeout: 250ms
  verify: true
logging:
  level: debug
`), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, gpu.PowerLowPower, cfg.Device.PowerPreference)
	assert.Equal(t, "intel", cfg.Device.Adapter)
	assert.Equal(t, 250*time.Millisecond, cfg.Dispatch.Timeout)
	assert.Equal(t, time.Millisecond, cfg.Dispatch.PollInterval, "unset keys keep their defaults")
	assert.True(t, cfg.Dispatch.Verify)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dispatch:\n  timeout: 2s\n"), 0o644))
	t.Setenv("WGCOMPUTE_DISPATCH_TIMEOUT", "9s")
	t.Setenv("WGCOMPUTE_DEVICE_FORCE_FALLBACK", "true")

	cfg, err := Load(nil, path)
	require.NoError(t, err)
	assert.Equal(t, 9*time.Second, cfg.Dispatch.Timeout)
	assert.True(t, cfg.Device.ForceFallback)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err, "an explicit config file must exist")
}

func TestValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		edit func(c *Config)
		want string
	}{
		{"power", func(c *Config) { c.Device.PowerPreference = "turbo" }, "device.power_preference"},
		{"timeout", func(c *Config) { c.Dispatch.Timeout = 0 }, "dispatch.timeout"},
		{"poll", func(c *Config) { c.Dispatch.PollInterval = time.Minute }, "dispatch.poll_interval"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.edit(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
