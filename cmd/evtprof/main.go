// Command evtprof runs an event-processing task and reports how long each
// algorithm took.
//
// Usage:
//
//	evtprof run --config task.yaml [--events N] [--rate R] [--log-level L] [--no-profile] [--watch]
//	evtprof validate --config task.yaml [--output table|json|yaml]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zebiner/evt-profiler/internal/cli"
)

var (
	configPath   string
	runOpts      = cli.RunOptions{Events: -1, Rate: -1}
	outputFormat string
	watch        bool

	rootCmd = &cobra.Command{
		Use:           "evtprof",
		Short:         "Run event-processing tasks and profile their algorithms",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd = &cobra.Command{
		Use:   "run",
		Short: "Run a task and print the profiling report",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			runOpts.ConfigPath = configPath
			if watch {
				return cli.WatchProfile(ctx, runOpts, cmd.OutOrStdout())
			}
			return cli.RunProfile(ctx, runOpts, cmd.OutOrStdout())
		},
	}

	validateCmd = &cobra.Command{
		Use:   "validate",
		Short: "Check a task file and list its algorithms",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.ValidateTask(configPath, outputFormat, cmd.OutOrStdout())
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "task.yaml", "task description file")

	runCmd.Flags().IntVarP(&runOpts.Events, "events", "n", -1, "number of events, overrides the task file when >= 0")
	runCmd.Flags().Float64Var(&runOpts.Rate, "rate", -1, "events per second (0 = unthrottled), overrides the task file when >= 0")
	runCmd.Flags().StringVar(&runOpts.LogLevel, "log-level", "", "log level: error, warn, info, debug or trace")
	runCmd.Flags().BoolVar(&runOpts.NoProfile, "no-profile", false, "run without the profiling service")
	runCmd.Flags().BoolVarP(&watch, "watch", "w", false, "run again whenever the task file changes")

	validateCmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json or yaml")

	rootCmd.AddCommand(runCmd, validateCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
