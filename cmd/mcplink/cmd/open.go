package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/barysiuk/mcplink/internal/ipc"
	"github.com/spf13/cobra"
)

var openCmd = &cobra.Command{
	Use:   "open <install-url>",
	Short: "Install an MCP server from an install link",
	Long: `Install the MCP server described by an mcplink:// install link.

The link is decoded, any pinned source tree is fetched, uv/uvx launch
commands are rewritten to the bundled launchers, and the entry is saved
into the host app's configuration. The host app is then restarted so it
picks up the new server (use --no-restart to skip this).

This is the command the operating system runs when an mcplink:// link is
opened. Pass "-" to read the link from standard input.`,
	Example: `  mcplink open mcplink://eyJjb25maWciOnsic3BvdGlmeSI6...
  mcplink open --no-restart "$LINK"
  mcplink encode --name spotify --command uvx --arg spotify-mcp | mcplink open -`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}

		noRestart, _ := cmd.Flags().GetBool("no-restart")

		link := args[0]
		if link == "-" {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading install link from stdin: %w", err)
			}
			link = strings.TrimSpace(string(data))
		}

		var result *core.Notification
		cancel := ipc.Subscribe(d.bus, ipc.Notify, func(n core.Notification) {
			result = &n
			printNotification(n)
		})
		defer cancel()

		orch := d.orchestrator(noRestart)
		orch.Install(cmd.Context(), link)

		if result != nil && result.Type == core.NotifyError {
			return errors.New(result.Title)
		}
		return nil
	},
}

func printNotification(n core.Notification) {
	switch n.Type {
	case core.NotifyError:
		fmt.Fprintf(os.Stderr, "%s: %s\n", n.Title, n.Message)
	default:
		fmt.Fprintf(os.Stdout, "%s: %s\n", n.Title, n.Message)
	}
}

func init() {
	openCmd.Flags().Bool("no-restart", false, "Save the server without restarting the host app")
	rootCmd.AddCommand(openCmd)
}
