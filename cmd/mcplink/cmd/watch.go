package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/barysiuk/mcplink/internal/ipc"
	"github.com/barysiuk/mcplink/internal/tui"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the host app's configuration for changes",
	Long: `Watch the host app's configuration file and show its servers live.

Edits made by other programs (or by hand) are picked up as soon as the file
is written. A file that becomes unreadable or invalid is reported and
watching continues. In the interactive view servers can also be removed.

Use --plain to print one line per change instead of the interactive view.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}

		plain, _ := cmd.Flags().GetBool("plain")
		watcher := core.NewConfigWatcher(d.store.Path(), d.logger)

		if !plain {
			stop, err := d.service.StartWatching(watcher)
			if err != nil {
				return err
			}
			defer stop()
			return tui.Run(cmd.Context(), d.bus, d.store.Path())
		}

		defer ipc.Subscribe(d.bus, ipc.ConfigChanged, func(ev ipc.ConfigChangedEvent) {
			names := []string{}
			if ev.Document != nil {
				names = ev.Document.ServerNames()
			}
			fmt.Fprintf(os.Stdout, "changed: %d server(s) [%s]\n", len(names), strings.Join(names, ", "))
		})()
		defer ipc.Subscribe(d.bus, ipc.WatchError, func(ev ipc.WatchErrorEvent) {
			fmt.Fprintf(os.Stdout, "error: %s\n", ev.Message)
		})()

		stop, err := d.service.StartWatching(watcher)
		if err != nil {
			return err
		}
		defer stop()

		fmt.Fprintf(os.Stdout, "Watching %s (Ctrl+C to stop)\n", d.store.Path())
		<-cmd.Context().Done()
		return nil
	},
}

func init() {
	watchCmd.Flags().Bool("plain", false, "Print changes line by line instead of the interactive view")
	rootCmd.AddCommand(watchCmd)
}
