package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/webserv/pkg/accesslog"
	"mercator-hq/webserv/pkg/accesslog/storage"
	"mercator-hq/webserv/pkg/cli"
	"mercator-hq/webserv/pkg/config"
)

var accesslogCmd = &cobra.Command{
	Use:   "accesslog",
	Short: "Inspect and maintain the access log",
	Long: `Query and prune the access log configured under access_log in webserv.yaml.
The backend is opened directly; the server does not need to be running.`,
}

var queryFlags struct {
	backend    string
	since      string
	until      string
	method     string
	status     int
	minStatus  int
	pathPrefix string
	serverName string
	limit      int
	offset     int
	format     string
	count      bool
}

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print access records, newest first",
	Long: `Print access records matching the given filters, newest first.

Examples:
  # Last 100 requests
  webserv accesslog query

  # Server errors in the last hour as JSON
  webserv accesslog query --since 1h --min-status 500 --format json

  # CGI requests on one virtual server, exported as CSV
  webserv accesslog query --path /cgi-bin/ --server example.com --format csv`,
	Args: cobra.NoArgs,
	RunE: queryAccessLog,
}

var pruneFlags struct {
	backend string
	days    int
	dryRun  bool
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete access records older than the retention period",
	Long: `Delete access records older than --days (default: access_log.retention.days).

Examples:
  webserv accesslog prune
  webserv accesslog prune --days 7 --dry-run`,
	Args: cobra.NoArgs,
	RunE: pruneAccessLog,
}

func init() {
	rootCmd.AddCommand(accesslogCmd)
	accesslogCmd.AddCommand(queryCmd, pruneCmd)

	queryCmd.Flags().StringVar(&queryFlags.backend, "backend", "", "backend: sqlite, sqlite-pure, memory (uses config if not specified)")
	queryCmd.Flags().StringVar(&queryFlags.since, "since", "", "records at or after this time (RFC 3339 or a duration such as 24h)")
	queryCmd.Flags().StringVar(&queryFlags.until, "until", "", "records before this time (RFC 3339 or a duration)")
	queryCmd.Flags().StringVar(&queryFlags.method, "method", "", "filter by request method")
	queryCmd.Flags().IntVar(&queryFlags.status, "status", 0, "filter by exact status code")
	queryCmd.Flags().IntVar(&queryFlags.minStatus, "min-status", 0, "filter by minimum status code")
	queryCmd.Flags().StringVar(&queryFlags.pathPrefix, "path", "", "filter by request URI prefix")
	queryCmd.Flags().StringVar(&queryFlags.serverName, "server", "", "filter by virtual server name")
	queryCmd.Flags().IntVar(&queryFlags.limit, "limit", accesslog.DefaultQueryLimit, "maximum number of records")
	queryCmd.Flags().IntVar(&queryFlags.offset, "offset", 0, "records to skip")
	queryCmd.Flags().StringVar(&queryFlags.format, "format", accesslog.FormatText, "output format: text, json, csv")
	queryCmd.Flags().BoolVar(&queryFlags.count, "count", false, "print only the number of matching records")

	pruneCmd.Flags().StringVar(&pruneFlags.backend, "backend", "", "backend (uses config if not specified)")
	pruneCmd.Flags().IntVar(&pruneFlags.days, "days", 0, "retention in days (uses config if not specified)")
	pruneCmd.Flags().BoolVar(&pruneFlags.dryRun, "dry-run", false, "count records that would be deleted")
}

func openAccessLog(backend string) (accesslog.Storage, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	alCfg := cfg.AccessLog
	if backend != "" {
		alCfg.Backend = backend
	}
	store, err := storage.Open(alCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open access log: %w", err)
	}
	return store, cfg, nil
}

// parseTimeFlag accepts RFC 3339 or a duration counted back from now.
func parseTimeFlag(name, v string, now time.Time) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(v); err == nil {
		return now.Add(-d), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: want RFC 3339 or a duration", name, v)
	}
	return t, nil
}

func buildQuery(now time.Time) (*accesslog.Query, error) {
	since, err := parseTimeFlag("since", queryFlags.since, now)
	if err != nil {
		return nil, err
	}
	until, err := parseTimeFlag("until", queryFlags.until, now)
	if err != nil {
		return nil, err
	}
	return &accesslog.Query{
		Since:      since,
		Until:      until,
		Method:     queryFlags.method,
		Status:     queryFlags.status,
		MinStatus:  queryFlags.minStatus,
		PathPrefix: queryFlags.pathPrefix,
		ServerName: queryFlags.serverName,
		Limit:      queryFlags.limit,
		Offset:     queryFlags.offset,
	}, nil
}

func queryAccessLog(cmd *cobra.Command, args []string) error {
	q, err := buildQuery(time.Now())
	if err != nil {
		return err
	}
	store, _, err := openAccessLog(queryFlags.backend)
	if err != nil {
		return cli.NewCommandError("accesslog query", err)
	}
	defer store.Close()

	ctx := context.Background()
	if queryFlags.count {
		n, err := store.Count(ctx, q)
		if err != nil {
			return cli.NewCommandError("accesslog query", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	}

	records, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("accesslog query", err)
	}
	return accesslog.Export(cmd.OutOrStdout(), queryFlags.format, records)
}

func pruneAccessLog(cmd *cobra.Command, args []string) error {
	store, cfg, err := openAccessLog(pruneFlags.backend)
	if err != nil {
		return cli.NewCommandError("accesslog prune", err)
	}
	defer store.Close()

	days := cfg.AccessLog.Retention.Days
	if pruneFlags.days > 0 {
		days = pruneFlags.days
	}
	if days <= 0 {
		return cli.NewCommandError("accesslog prune", fmt.Errorf("retention is disabled; pass --days"))
	}
	pruner := accesslog.NewPruner(store, days)
	ctx := context.Background()

	if pruneFlags.dryRun {
		n, err := store.Count(ctx, &accesslog.Query{Until: pruner.Cutoff()})
		if err != nil {
			return cli.NewCommandError("accesslog prune", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d records older than %s would be deleted\n", n, pruner.Cutoff().Format(time.RFC3339))
		return nil
	}

	n, err := pruner.Prune(ctx)
	if err != nil {
		return cli.NewCommandError("accesslog prune", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted %d records older than %d days\n", n, days)
	return nil
}
