// meshctl is the command line client for the TaskMesh coordination API.
//
// Usage:
//
//	meshctl [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Commands:
//
//	task      Submit and route tasks
//	worker    Manage workers
//	channel   Inspect message bus channels
//	stats     Show runtime statistics
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/helixops/taskmesh/internal/cli"
)

// version is set by build flags.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "meshctl",
		Short:         "meshctl — TaskMesh coordination client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewTaskCmd(clientFn, outputFn),
		cli.NewWorkerCmd(clientFn, outputFn),
		cli.NewChannelCmd(clientFn, outputFn),
		cli.NewStatsCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
