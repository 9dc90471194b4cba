package commands

import (
	"encoding/json"
	"fmt"

	"github.com/Sternrassler/quran-xref/pkg/slug"
	"github.com/spf13/cobra"
)

type resolved struct {
	Input string `json:"input"`
	Key   string `json:"key"`
	Surah int    `json:"surah"`
	Verse int    `json:"verse"`
	Slug  string `json:"slug"`
}

func (c *CLI) newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id>",
		Short: "Resolve a composite or canonical verse identifier",
		Example: `  xref resolve al-baqarah:247
  xref resolve "Ali Imran/7"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, ok := slug.Resolve(args[0])
			if !ok {
				return fmt.Errorf("cannot resolve %q to a Quran verse", args[0])
			}
			name, _ := slug.IDToSlug(ref.Surah)

			out := resolved{Input: args[0], Key: ref.Key(), Surah: ref.Surah, Verse: ref.Verse, Slug: name}
			if c.jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", out.Key, out.Slug)
			return err
		},
	}
}

func (c *CLI) newSurahsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "surahs",
		Short: "List the surah slug table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := cmd.OutOrStdout()
			for id := 1; id <= slug.Len(); id++ {
				name, _ := slug.IDToSlug(id)
				if _, err := fmt.Fprintf(w, "%3d  %s\n", id, name); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
