// Package cli implements the Cobra-based command line interface with
// commands for serving the API, running one-off scans, validating
// targets and inspecting network interfaces.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scanlab-io/scanlab/internal/config"
	"github.com/scanlab-io/scanlab/internal/logging"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "scanlab",
	Short: "Safe local network scanner",
	Long: `Scanlab is a local network scanner built for safe experimentation.
It only accepts private network targets, requires explicit consent for
every scan, and ships a deterministic simulated mode so the full
workflow can be exercised without touching a real network.`,
	Version: getVersion(),
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional, SCANLAB_* env vars always apply)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads the configuration and initializes logging.
func initConfig() {
	loaded, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cfg = loaded

	if verbose {
		cfg.Logging.Level = "debug"
	}
	initLogging()
}

// initLogging initializes structured logging based on configuration.
func initLogging() {
	logConfig := cfg.LoggerConfig()
	logConfig.AddSource = cfg.Logging.Level == "debug"

	logger, err := logging.New(logConfig)
	if err != nil {
		logger = logging.NewDefault()
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize logging: %v\n", err)
	}
	logging.SetDefault(logger)
}

// getVersion returns the version string.
func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
	rootCmd.Version = getVersion()
}
