package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/webserv/pkg/cli"
	"mercator-hq/webserv/pkg/config"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "webserv",
	Short: "Webserv - event-loop HTTP server with CGI",
	Long: `Webserv serves static files, directory listings, uploads and CGI scripts
from a single event-loop goroutine. Virtual servers and locations come from an
nginx-style site file; runtime tuning, access logging, metrics and tracing come
from webserv.yaml.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "webserv.yaml", "process config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads webserv.yaml with environment overrides. A missing file
// yields the defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError(cfgFile, err)
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
