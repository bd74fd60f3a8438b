package commands

import (
	"github.com/janpfeifer/must"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/openfluke/wgcompute/config"
	"github.com/openfluke/wgcompute/gpu"
	"github.com/openfluke/wgcompute/logging"
)

var (
	cfgFile string
	verbose bool

	// v holds flag bindings; config.Load layers file and environment under them.
	v   = viper.New()
	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "wgcompute",
	Short: "Run WGSL compute programs on the GPU",
	Long: `wgcompute compiles WGSL compute programs, binds host arrays as storage
buffers, dispatches them on a WebGPU device and reads the results back.

It bundles the saxpy, dot product, transpose and matrix product examples.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wgcompute/config.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.String("power", gpu.PowerHighPerformance, "adapter power preference (high-performance, low-power)")
	flags.String("adapter", "", "prefer the adapter whose name or vendor contains this text")
	flags.Bool("fallback", false, "force the software fallback adapter")
	flags.Duration("timeout", gpu.DefaultTimeout, "read-back timeout per dispatch")

	must.M(v.BindPFlag("logging.level", flags.Lookup("log-level")))
	must.M(v.BindPFlag("device.power_preference", flags.Lookup("power")))
	must.M(v.BindPFlag("device.adapter", flags.Lookup("adapter")))
	must.M(v.BindPFlag("device.force_fallback", flags.Lookup("fallback")))
	must.M(v.BindPFlag("dispatch.timeout", flags.Lookup("timeout")))
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(v, cfgFile)
	if err != nil {
		return err
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}
	if err := logging.Init(cfg.Logging.Level, cfg.Logging.File, cfg.Logging.Console); err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" {
		logging.Debugf("using config file %s", used)
	}
	return nil
}

// openDispatcher acquires a device with the configured adapter options.
func openDispatcher() (*gpu.Dispatcher, func(), error) {
	c, err := gpu.Acquire(cfg.GPUOptions())
	if err != nil {
		logging.Errorf("no device: %v", err)
		return nil, nil, err
	}
	return gpu.NewDispatcher(c, cfg.DispatchOptions()...), c.Release, nil
}
