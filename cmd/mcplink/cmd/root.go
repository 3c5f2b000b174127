package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "mcplink",
	Short: "Install MCP servers into your desktop chat app from a link",
	Long: `mcplink handles mcplink:// install links. Each link describes one MCP
server; mcplink optionally downloads its pinned source, points its launch
command at the bundled uv/uvx, saves it into the app's configuration file,
and restarts the app.

It can also list and remove configured servers, and watch the
configuration file for changes made by other programs.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "mcplink %s (commit: %s, built: %s)\n", Version, Commit, Date)
	},
}

func init() {
	rootCmd.PersistentFlags().String("settings", "", "Path to settings file (default ~/.mcplink/settings.json)")
	rootCmd.PersistentFlags().String("config", "", "Path to the host app's configuration file (overrides settings)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Log debug output to stderr")
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command. An interrupt cancels the running command.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}
