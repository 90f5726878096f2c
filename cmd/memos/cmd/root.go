// Package cmd is the memos CLI: the recall and apply entry points over
// a single workspace root, adapted from the teacher's Cobra root
// command idiom (persistent debug flags, colored error/usage output).
package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/memos-run/memos/memlog"
)

var (
	workspaceFlag string
	debugFlag     bool
	debugLevel    string
	jsonFlag      bool
)

// RootCmd is the base command when memos is called without a subcommand.
var RootCmd = &cobra.Command{
	Use:           "memos [command] [flags]",
	Short:         "durable, file-backed structured memory for long-running agents",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if debugFlag {
			level := memlog.ParseDebugLevel(debugLevel)
			memlog.Enable(level)
			fmt.Fprintf(os.Stderr, "debug mode enabled (level: %s)\n", level.String())
		}
		if workspaceFlag == "" {
			workspaceFlag = "."
		}
		if err := memlog.InstallRotatingLogger(workspaceFlag); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to install rotating logger: %v\n", err)
		}
	},
}

// dumpTraceIfEnabled prints every captured trace-level entry with spew
// when debug mode is on; the captured entries are left in place.
func dumpTraceIfEnabled() {
	if !memlog.Enabled() {
		return
	}
	for _, e := range memlog.Entries() {
		if e.Level == memlog.DebugLevelTrace {
			fmt.Fprint(os.Stderr, memlog.SdumpEntry(e))
		}
	}
}

// Execute runs the root command, printing a colored error/usage block
// on failure. Called once from main.main.
func Execute() {
	defer dumpTraceIfEnabled()
	if err := RootCmd.Execute(); err != nil {
		color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, "Error: %v\n", err)
		fmt.Println()

		color.New(color.Bold, color.BgGreen, color.FgHiWhite).Println(" Usage ")
		color.New(color.Bold).Println("  memos recall --query <q> [--workspace <p>] [--limit N]")
		color.New(color.Bold).Println("  memos apply <ProposalId> [--workspace <p>] [--dry-run]")
		color.New(color.Bold).Println("  memos apply --rollback <TS> [--workspace <p>]")
		fmt.Println()

		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps an error to the CLI's documented exit codes: 1 for
// a failed/rolled-back apply, 2 for a validation error, 1 otherwise.
func exitCodeFor(err error) int {
	if isValidationError(err) {
		return 2
	}
	return 1
}

func init() {
	RootCmd.PersistentFlags().StringVar(&workspaceFlag, "workspace", ".", "workspace root directory")
	RootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug mode tracing")
	RootCmd.PersistentFlags().StringVar(&debugLevel, "debug-level", "info", "debug verbosity (info, debug, trace)")
	RootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "emit JSON instead of a table")

	RootCmd.AddCommand(recallCmd)
	RootCmd.AddCommand(applyCmd)
}
