// Package cli holds helpers shared by the webserv subcommands: typed
// errors that map to exit codes, signal handling and result output.
//
//	ctx, stop := cli.SignalContext(context.Background())
//	defer stop()
//	for range cli.Hangups(ctx) {
//		watcher.Reload()
//	}
package cli
