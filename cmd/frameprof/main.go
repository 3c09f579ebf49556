// Command frameprof hosts the runtime profiler inside a terminal demo.
//
// The demo subcommand renders a procedurally animated scene with ANSI
// half-block characters while the profiler instruments its render and
// simulation loops, with the live profile tree shown in an overlay.
//
// # Usage
//
//	frameprof demo [flags]
//	frameprof schema [flags]
//	frameprof version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"go.jacobcolvin.com/frameprof/log"
	"go.jacobcolvin.com/frameprof/version"
)

func main() {
	logCfg := log.NewConfig()

	rootCmd := &cobra.Command{
		Use:   "frameprof",
		Short: "Hierarchical frame profiler with a terminal demo",
		Long: `frameprof measures named scopes across threads of a real-time render loop and
aggregates them into a live hierarchy with per-frame, rolling, and peak
statistics.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	logCfg.RegisterFlags(rootCmd.PersistentFlags())

	completionErr := logCfg.RegisterCompletions(rootCmd)
	if completionErr != nil {
		fmt.Fprintf(os.Stderr, "register completions: %v\n", completionErr)
	}

	rootCmd.AddCommand(
		newDemoCmd(logCfg),
		newSchemaCmd(),
		newVersionCmd(),
	)

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}
