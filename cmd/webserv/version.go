package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"mercator-hq/webserv/pkg/cli"
	"mercator-hq/webserv/pkg/telemetry/health"
)

var (
	// Version is the semantic version (set by build flags)
	Version = "0.1.0"
	// GitCommit is the git commit hash (set by build flags)
	GitCommit = "unknown"
	// BuildDate is the build timestamp (set by build flags)
	BuildDate = "unknown"
)

var versionFlags struct {
	output string
}

type versionOutput struct {
	health.VersionInfo
	Platform string `json:"platform"`
}

func (v versionOutput) String() string {
	return fmt.Sprintf("Webserv %s\nGit Commit: %s\nBuild Date: %s\nGo Version: %s\nOS/Arch: %s",
		v.Version, v.Commit, v.BuildTime, v.GoVersion, v.Platform)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cli.ParseOutputFormat(versionFlags.output)
		if err != nil {
			return err
		}
		return cli.Write(cmd.OutOrStdout(), format, buildInfo())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().StringVarP(&versionFlags.output, "output", "o", "text", "output format: text, json")
}

func buildInfo() versionOutput {
	return versionOutput{
		VersionInfo: health.VersionInfo{
			Version:   Version,
			Commit:    GitCommit,
			BuildTime: BuildDate,
			GoVersion: runtime.Version(),
		},
		Platform: runtime.GOOS + "/" + runtime.GOARCH,
	}
}
