// Package cli provides the command-line interface of the Network Vector
// scanner. The root command scans its target argument; subcommands repeat
// scans on a schedule and manage the configuration file.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/artofscripting/networkvector/internal/config"
	"github.com/artofscripting/networkvector/internal/logging"
)

// defaultConfigFile is read from the working directory when --config is not
// given and the file exists.
const defaultConfigFile = "nvector.yaml"

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// app carries state shared by every command of one invocation.
type app struct {
	v         *viper.Viper
	cfgFile   string
	verbose   bool
	logLevel  string
	logFormat string

	cfg    *config.Config
	logger *logging.Logger
}

// newRootCmd builds the command tree. Each call returns an independent tree
// so tests can execute commands in isolation.
func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	flags := &scanFlags{}

	rootCmd := &cobra.Command{
		Use:   "nvector <targets>",
		Short: "Network topology scanner",
		Long: `Network Vector discovers live hosts and open TCP ports across address
ranges, guesses operating systems from the open ports, resolves hostnames,
lists SMB shares, and renders the result as an interactive network graph.

Targets are comma separated addresses, CIDR blocks and ranges
(192.168.1.0/24, 10.0.0.1-10.0.0.50, 10.0.0.5-20).`,
		Example: `  nvector 192.168.1.0/24
  nvector 10.0.0.0/24 --ports 22,80,443,8000-8100 --no-graph
  nvector 192.168.1.0/24 --dig --live --live-addr 127.0.0.1:8787
  nvector 172.16.0.0/16 --exempt 172.16.0.1,172.16.5.0/24 --rate 500`,
		Version:       getVersion(),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initialize(cmd, flags)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runScan(cmd, args[0])
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ./"+defaultConfigFile+" if present)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "verbose output (debug logging and per-host lines)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.logFormat, "log-format", "", "log format: text, json")

	flags.register(rootCmd.Flags())

	rootCmd.AddCommand(
		newScheduleCmd(a),
		newConfigCmd(a),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line and exits non-zero on failure. This is
// called by main.main().
func Execute() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initialize loads configuration and installs the logger. Scan flags that map
// directly onto configuration keys are bound into viper so the usual
// precedence applies: flag, then NVECTOR_ environment, then file, then default.
func (a *app) initialize(cmd *cobra.Command, flags *scanFlags) error {
	if err := flags.bind(a.v, cmd.Flags()); err != nil {
		return err
	}
	if pf := cmd.Flags().Lookup("log-level"); pf != nil {
		if err := a.v.BindPFlag("logging.level", pf); err != nil {
			return err
		}
	}
	if pf := cmd.Flags().Lookup("log-format"); pf != nil {
		if err := a.v.BindPFlag("logging.format", pf); err != nil {
			return err
		}
	}

	switch {
	case a.cfgFile != "":
		a.v.SetConfigFile(a.cfgFile)
	case fileExists(defaultConfigFile):
		a.v.SetConfigFile(defaultConfigFile)
	}

	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	if err := flags.apply(cmd.Flags(), cfg); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	return a.initLogging(cmd.ErrOrStderr())
}

// initLogging initializes structured logging based on configuration.
func (a *app) initLogging(stderr io.Writer) error {
	logConfig := a.cfg.Logging
	if a.verbose {
		logConfig.Level = logging.LevelDebug
	}

	var logger *logging.Logger
	if logConfig.Output == "" || logConfig.Output == "stderr" {
		logger = logging.NewWithWriter(logConfig, stderr)
	} else {
		var err error
		if logger, err = logging.New(logConfig); err != nil {
			return fmt.Errorf("failed to initialize logging: %w", err)
		}
	}

	logging.SetDefault(logger)
	a.logger = logger

	if used := a.v.ConfigFileUsed(); used != "" {
		logger.Debug("Using config file", "path", used)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
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
}
