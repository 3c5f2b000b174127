package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/barysiuk/mcplink/internal/ipc"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var serversCmd = &cobra.Command{
	Use:   "servers",
	Short: "Manage servers in the host app's configuration",
}

var serversListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured MCP servers",
	Long: `List the MCP servers saved in the host app's configuration file.

Use --format json or --format yaml for scripting.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}

		format, _ := cmd.Flags().GetString("format")

		resp := ipc.Call(cmd.Context(), d.bus, ipc.GetServers, ipc.Empty{})
		if !resp.Success {
			return errors.New(resp.Error)
		}
		servers := resp.Data
		if servers == nil {
			servers = map[string]core.ServerLaunchSpec{}
		}

		switch format {
		case "json":
			data, err := json.MarshalIndent(servers, "", "  ")
			if err != nil {
				return fmt.Errorf("marshaling JSON: %w", err)
			}
			fmt.Fprintln(os.Stdout, string(data))
		case "yaml":
			data, err := yaml.Marshal(servers)
			if err != nil {
				return fmt.Errorf("marshaling YAML: %w", err)
			}
			fmt.Fprint(os.Stdout, string(data))
		case "table", "":
			if len(servers) == 0 {
				fmt.Fprintf(os.Stdout, "No servers configured in %s\n", d.store.Path())
				return nil
			}
			printServerTable(servers)
		default:
			return fmt.Errorf("unknown format %q (want table, json, or yaml)", format)
		}
		return nil
	},
}

var serversRemoveCmd = &cobra.Command{
	Use:     "remove <server-name>",
	Aliases: []string{"rm"},
	Short:   "Remove a server from the host app's configuration",
	Long: `Remove one server entry from the host app's configuration file.
Every other part of the file is left byte-for-byte unchanged. Removing a
server that is not configured is not an error.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := newDeps(cmd)
		if err != nil {
			return err
		}

		resp := ipc.Call(cmd.Context(), d.bus, ipc.DeleteServer, ipc.DeleteServerRequest{ServerName: args[0]})
		if !resp.Success {
			return errors.New(resp.Error)
		}
		fmt.Fprintf(os.Stdout, "Removed: %s\n", args[0])
		return nil
	},
}

func printServerTable(servers map[string]core.ServerLaunchSpec) {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Name\tCommand\tArgs\tEnv")
	for _, name := range names {
		s := servers[name]
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, s.Command, strings.Join(s.Args, " "), envKeys(s.Env))
	}
	_ = w.Flush()
}

// envKeys lists variable names only; values are often credentials.
func envKeys(env map[string]string) string {
	if len(env) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ",")
}

func init() {
	serversListCmd.Flags().String("format", "table", "Output format: table, json, or yaml")
	serversCmd.AddCommand(serversListCmd)
	serversCmd.AddCommand(serversRemoveCmd)
	rootCmd.AddCommand(serversCmd)
}
