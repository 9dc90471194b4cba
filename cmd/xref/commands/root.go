// Package commands implements the xref command line interface.
package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/Sternrassler/quran-xref/pkg/metrics"
	"github.com/Sternrassler/quran-xref/pkg/source"
	"github.com/spf13/cobra"
)

// Source serves normalized clusters. *source.Adapter implements it.
type Source interface {
	GetByKey(ctx context.Context, key string) []source.Cluster
	Search(ctx context.Context, query string) []source.Cluster
	Invalidate(ctx context.Context)
}

// CLI represents the xref command line interface.
type CLI struct {
	source  Source
	rootCmd *cobra.Command

	jsonOutput  bool
	dumpMetrics bool
}

// New creates a new CLI backed by src.
func New(src Source) *CLI {
	rootCmd := &cobra.Command{
		Use:           "xref",
		Short:         "Cross-scripture verse clusters for Quran study",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       Version,
	}

	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"

	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"

	c := &CLI{
		source:  src,
		rootCmd: rootCmd,
	}

	rootCmd.PersistentFlags().BoolVar(&c.jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVar(&c.dumpMetrics, "metrics", false, "Print collected metrics to stderr on exit")
	rootCmd.PersistentPostRunE = func(cmd *cobra.Command, _ []string) error {
		if !c.dumpMetrics {
			return nil
		}
		return metrics.WriteText(cmd.ErrOrStderr())
	}

	rootCmd.AddCommand(c.newLookupCmd())
	rootCmd.AddCommand(c.newSearchCmd())
	rootCmd.AddCommand(c.newResolveCmd())
	rootCmd.AddCommand(c.newSurahsCmd())
	rootCmd.AddCommand(c.newInvalidateCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput redirects standard and error output. Used for testing.
func (c *CLI) SetOutput(out, errOut io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(errOut)
}

func (c *CLI) printClusters(w io.Writer, clusters []source.Cluster) error {
	if c.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(clusters)
	}

	if len(clusters) == 0 {
		_, err := fmt.Fprintln(w, "no clusters found")
		return err
	}

	for _, cl := range clusters {
		fmt.Fprintf(w, "%s  similarity=%.2f  %s\n", cl.ID, cl.Similarity, cl.Summary)
		for _, ref := range cl.References {
			fmt.Fprintf(w, "  [%s] %s %d:%d", ref.Kind, ref.Book, ref.Chapter, ref.Verse)
			if ref.CanonicalKey != "" {
				fmt.Fprintf(w, " (%s)", ref.CanonicalKey)
			}
			if ref.Text != "" {
				fmt.Fprintf(w, "  %s", ref.Text)
			}
			fmt.Fprintln(w)
		}
	}
	return nil
}
