// Package cmd provides the command-line interface for cachesim.
package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
)

// NewRootCommand creates the cachesim command with all its subcommands.
func NewRootCommand() *cobra.Command {
	var noColor bool

	rootCmd := &cobra.Command{
		Use:   "cachesim",
		Short: "cachesim simulates a two-level inclusive cache hierarchy.",
		Long: `cachesim replays a trace of reads and writes through a ` +
			`direct-mapped L1 backed by a set-associative LRU L2, and ` +
			`reports hits, misses, write-backs and average access time.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if noColor {
				color.NoColor = true
			}
		},
	}

	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(
		newRunCommand(),
		newConfigCommand(),
		newRunsCommand(),
		newVersionCommand(),
	)

	return rootCmd
}

// Execute runs the command line and exits the process. Registered exit
// handlers, such as pending database flushes, run before exiting.
func Execute() {
	err := NewRootCommand().Execute()
	if err != nil {
		printError(os.Stderr, err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func printError(w io.Writer, err error) {
	errorColor.Fprint(w, "Error:")
	fmt.Fprintf(w, " %v\n", err)
}

func printHeading(w io.Writer, heading string) {
	headingColor.Fprintln(w, heading)
}
