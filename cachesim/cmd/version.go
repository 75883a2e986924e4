package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is replaced at link time with -ldflags "-X ...cmd.Version=v1.2.3".
var Version = "dev"

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of cachesim.",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cachesim %s\n", Version)
		},
	}
}
