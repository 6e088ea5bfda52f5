// Command omi runs the OMI API.
//
//	omi [serve]      run the HTTP server (default)
//	omi migrate      apply the schema to the configured database and exit
//	omi version      print build information
//
// main only parses flags and hands off; the actual wiring is in
// internal/server.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set at build time with -ldflags "-X main.Version=...".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "omi",
		Short: "OMI thought-capture API",
		Long: `OMI stores thoughts and goals per user and classifies free text with a
language model. Configuration comes from environment variables, an optional
.env file and an optional YAML file passed with --config.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to a YAML config file")

	root.AddCommand(newServeCmd(&configPath))
	root.AddCommand(newMigrateCmd(&configPath))
	root.AddCommand(newVersionCmd())
	return root
}
