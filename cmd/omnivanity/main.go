// Command omnivanity searches for vanity addresses on keccak, Bitcoin-family
// and Solana networks, on an OpenCL device when one is available and on the
// CPU otherwise.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/Amr-9/omnivanity/internal/config"
	"github.com/Amr-9/omnivanity/internal/logging"
	"github.com/Amr-9/omnivanity/internal/ui"
)

var version = "0.4"

var (
	v          = config.New()
	configPath string
)

var rootCmd = &cobra.Command{
	Use:           "omnivanity",
	Short:         "Vanity address search for Ethereum, Tron, Bitcoin, Solana and more",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("log-format", "text", "Log format: text or json")
	rootCmd.PersistentFlags().String("backend", "auto", "Compute backend: auto, opencl, cpu64, cpu32")
	rootCmd.PersistentFlags().Int("lanes", 0, "Lanes per dispatch (0 = default)")
	rootCmd.PersistentFlags().Int("keys-per-lane", 0, "Keys each lane tests per dispatch (0 = default)")
	rootCmd.PersistentFlags().Int("workers", 0, "CPU workers (0 = all cores)")

	bindFlags(rootCmd.PersistentFlags(), map[string]string{
		"log.level":     "log-level",
		"log.format":    "log-format",
		"backend":       "backend",
		"lanes":         "lanes",
		"keys_per_lane": "keys-per-lane",
		"workers":       "workers",
	})

	rootCmd.AddCommand(searchCmd, benchCmd, verifyCmd, devicesCmd, chainsCmd)
}

// bindFlags binds config keys to flags. A flag only overrides the file and
// environment when it was set on the command line.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind %s: %v", key, err))
		}
	}
}

// loadConfig merges defaults, the config file, environment and flags.
func loadConfig() (*config.Config, *logging.Logger, error) {
	cfg, err := config.Load(v, configPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger(os.Stderr)
	if err != nil {
		return nil, nil, err
	}
	if from := cfg.LoadedFrom(); from != "" {
		logger.Debug("config loaded", "path", from)
	}
	return cfg, logger, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		ui.Stdout.PrintError(err)
		os.Exit(1)
	}
}
