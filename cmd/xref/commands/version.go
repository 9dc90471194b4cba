package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the application version, set at build time via -ldflags.
var Version = "dev"

func (c *CLI) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "xref version %s\n", Version)
		},
	}
}
