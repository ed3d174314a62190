package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"mercator-hq/webserv/pkg/cli"
	"mercator-hq/webserv/pkg/site"
)

var validateFlags struct {
	output string
}

var validateCmd = &cobra.Command{
	Use:   "validate [site-file]",
	Short: "Check the process config and the site file",
	Long: `Load webserv.yaml (with WEBSERV_* overrides) and the site file, and report
every problem found. Unlike run, validate never falls back to the built-in
site: an unusable site file is an error.

Examples:
  webserv validate
  webserv validate conf/site.conf --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
	validateCmd.Flags().StringVarP(&validateFlags.output, "output", "o", "text", "output format: text, json")
}

type validateReport struct {
	ConfigFile string         `json:"config_file"`
	SiteFile   string         `json:"site_file"`
	Servers    []serverReport `json:"servers"`
}

type serverReport struct {
	Listen     string   `json:"listen"`
	ServerName string   `json:"server_name,omitempty"`
	Root       string   `json:"root"`
	Locations  []string `json:"locations"`
}

func (r validateReport) String() string {
	s := fmt.Sprintf("✓ %s valid\n✓ %s valid (%d servers)", r.ConfigFile, r.SiteFile, len(r.Servers))
	for _, srv := range r.Servers {
		name := srv.ServerName
		if name == "" {
			name = "_"
		}
		s += fmt.Sprintf("\n  %s %s root=%s locations=%v", srv.Listen, name, srv.Root, srv.Locations)
	}
	return s
}

func validateConfig(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(validateFlags.output)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	sitePath := cfg.Server.SiteFile
	if len(args) > 0 {
		sitePath = args[0]
	}
	siteCfg, err := site.Load(sitePath)
	if err != nil {
		return cli.NewConfigError(sitePath, err)
	}

	return writeValidateReport(cmd.OutOrStdout(), format, cfgFile, siteCfg)
}

func writeValidateReport(w io.Writer, format cli.OutputFormat, configFile string, cfg *site.Config) error {
	report := validateReport{ConfigFile: configFile, SiteFile: cfg.Source}
	for i := range cfg.Servers {
		srv := &cfg.Servers[i]
		sr := serverReport{
			Listen:     srv.Address().String(),
			ServerName: srv.ServerName,
			Root:       srv.Root,
			Locations:  make([]string, 0, len(srv.Locations)),
		}
		for _, loc := range srv.Locations {
			sr.Locations = append(sr.Locations, loc.Path)
		}
		report.Servers = append(report.Servers, sr)
	}
	return cli.Write(w, format, report)
}
