package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/loykin/pgrun/internal/config"
)

func main() {
	root := buildRoot(&command{out: os.Stdout})
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func buildRoot(c *command) *cobra.Command {
	root := &cobra.Command{
		Use:           "pgrun",
		Short:         "Run a pinned local PostgreSQL instance per data directory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	startFlags := &StartFlags{}
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Start the server and print its connection URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Start(cmd.Context(), *startFlags)
		},
	}
	addCommonFlags(startCmd, &startFlags.ConfigPath, &startFlags.DataDir)
	startCmd.Flags().StringVar(&startFlags.Host, "host", "", "listen address (default from config)")
	startCmd.Flags().Uint16Var(&startFlags.Port, "port", 0, "listen port (0 picks a free port)")
	startCmd.Flags().BoolVar(&startFlags.Daemon, "daemon", false, "return immediately, leaving the server running")

	stopFlags := &DataDirFlags{}
	stopCmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the server (no-op when not running)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.Stop(cmd.Context(), *stopFlags)
		},
	}
	addCommonFlags(stopCmd, &stopFlags.ConfigPath, &stopFlags.DataDir)

	statusFlags := &DataDirFlags{}
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Report whether the server is running",
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.Status(*statusFlags)
		},
	}
	addCommonFlags(statusCmd, &statusFlags.ConfigPath, &statusFlags.DataDir)

	urlFlags := &DataDirFlags{}
	urlCmd := &cobra.Command{
		Use:   "url",
		Short: "Print the connection URL of a running server",
		RunE: func(_ *cobra.Command, _ []string) error {
			return c.URL(*urlFlags)
		},
	}
	addCommonFlags(urlCmd, &urlFlags.ConfigPath, &urlFlags.DataDir)

	root.AddCommand(startCmd, stopCmd, statusCmd, urlCmd)
	return root
}

func addCommonFlags(cmd *cobra.Command, configPath, dataDir *string) {
	cmd.Flags().StringVar(configPath, "config", "", "config file (default ./pgrun.toml when present)")
	cmd.Flags().StringVar(dataDir, "data-dir", "",
		"data directory identifying the instance ("+config.DataDirEnv+" overrides)")
}
