package cli

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/acl-rts-tracker/internal/setup"
)

// MCPConfigCmd returns the mcp-config command
func MCPConfigCmd() *cobra.Command {
	var opts setup.Options

	cmd := &cobra.Command{
		Use:   "mcp-config",
		Short: "Register the lite MCP server with a desktop MCP client",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := setup.Configure(opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s in %s\n",
				color.New(color.FgGreen).Sprint("Registered"), setup.ServerName, path)
			fmt.Fprintln(cmd.OutOrStdout(), "Restart the client to load the server.")
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "Client config file (default: platform location)")
	cmd.Flags().StringVar(&opts.BinaryPath, "binary", "", "Path to acl-rts-mcp-lite (default: search PATH)")
	cmd.Flags().StringVar(&opts.DataDir, "data-dir", "", "Data directory passed as "+setup.DataDirEnv)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show whether the server is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := setup.GetStatus(opts.ConfigPath)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			state := color.New(color.FgRed).Sprint("not registered")
			if status.Configured {
				state = color.New(color.FgGreen).Sprint("registered")
			}
			fmt.Fprintf(out, "Client config: %s (%s)\n", status.ConfigPath, state)
			if status.ServerPath != "" {
				fmt.Fprintf(out, "Server binary: %s\n", status.ServerPath)
			}
			fmt.Fprintf(out, "Data dir:      %s\n", status.DataDir)
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  %s %s\n", color.New(color.FgYellow).Sprint("!"), issue)
			}
			return nil
		},
	}
	cmd.AddCommand(statusCmd)

	return cmd
}
