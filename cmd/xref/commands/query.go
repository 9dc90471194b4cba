package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func (c *CLI) newLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <surah:verse | slug:verse>",
		Short: "List clusters anchored on a Quran verse",
		Example: `  xref lookup 2:255
  xref lookup al-baqarah:255`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clusters := c.source.GetByKey(cmd.Context(), args[0])
			return c.printClusters(cmd.OutOrStdout(), clusters)
		},
	}
}

func (c *CLI) newSearchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>...",
		Short: "Find clusters whose summary or verse text contains the query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clusters := c.source.Search(cmd.Context(), strings.Join(args, " "))
			return c.printClusters(cmd.OutOrStdout(), clusters)
		},
	}
}

func (c *CLI) newInvalidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached results and the shared collection snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c.source.Invalidate(cmd.Context())
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "caches invalidated")
			return err
		},
	}
}
