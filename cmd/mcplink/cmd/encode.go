package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/barysiuk/mcplink/internal/core"
	"github.com/spf13/cobra"
)

var encodeCmd = &cobra.Command{
	Use:   "encode",
	Short: "Build an install link for an MCP server",
	Long: `Build an mcplink:// install link from a server definition.

Pass --repo and --commit to pin the server to a source tree; the launch
arguments can then refer to it with "--directory ." which is replaced by
the local checkout path at install time.`,
	Example: `  mcplink encode --name spotify --command uvx --arg spotify-mcp \
    --env SPOTIFY_CLIENT_ID=abc

  mcplink encode --name weather --command uv \
    --arg --directory --arg . --arg run --arg weather.py \
    --repo https://github.com/example/weather-mcp --commit 3f2a9c1`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		command, _ := cmd.Flags().GetString("command")
		cmdArgs, _ := cmd.Flags().GetStringArray("arg")
		envPairs, _ := cmd.Flags().GetStringArray("env")
		repo, _ := cmd.Flags().GetString("repo")
		commit, _ := cmd.Flags().GetString("commit")

		env, err := parseEnvPairs(envPairs)
		if err != nil {
			return err
		}
		if cmdArgs == nil {
			cmdArgs = []string{}
		}

		desc := &core.InstallDescriptor{
			Servers: map[string]core.ServerLaunchSpec{
				name: {Command: command, Args: cmdArgs, Env: env},
			},
		}
		if repo != "" || commit != "" {
			desc.Git = &core.GitSource{RepoURL: repo, Commit: commit}
		}

		link, err := core.EncodeInstallURL(desc)
		if err != nil {
			return fmt.Errorf("invalid server definition: %w", err)
		}
		fmt.Fprintln(os.Stdout, link)
		return nil
	},
}

// parseEnvPairs turns KEY=VALUE flags into a map.
func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	env := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --env %q: expected KEY=VALUE", p)
		}
		env[key] = value
	}
	return env, nil
}

func init() {
	encodeCmd.Flags().String("name", "", "Server name (required)")
	encodeCmd.Flags().String("command", "", "Launch command (required)")
	encodeCmd.Flags().StringArray("arg", nil, "Launch argument (repeatable, kept in order)")
	encodeCmd.Flags().StringArray("env", nil, "Environment variable as KEY=VALUE (repeatable)")
	encodeCmd.Flags().String("repo", "", "Git repository URL of the server source")
	encodeCmd.Flags().String("commit", "", "Commit the source is pinned to")
	_ = encodeCmd.MarkFlagRequired("name")
	_ = encodeCmd.MarkFlagRequired("command")
	rootCmd.AddCommand(encodeCmd)
}
