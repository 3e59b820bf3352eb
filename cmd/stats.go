package cmd

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/designtree/internal/design"
	"github.com/agentic-research/designtree/internal/export"
)

var statsKind string

var statsCmd = &cobra.Command{
	Use:   "stats [tree]",
	Short: "Summarize the last export into a tree",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tree := cfg.Output
		if len(args) == 1 {
			tree = args[0]
		}
		out := cmd.OutOrStdout()

		if statsKind != "" {
			kind, err := design.ParseKind(statsKind)
			if err != nil {
				return err
			}
			dbPath := filepath.Join(tree, export.IndexFile)
			entries, err := export.KindEntries(dbPath, kind)
			if err != nil {
				return err
			}
			bm, err := export.KindBitmap(dbPath, kind)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(out, "%-10s %-13s %s\n", e.NoteID, e.Format, e.Path)
			}
			fmt.Fprintf(out, "%s: %d entries, %d note ids\n", kind, len(entries), bm.GetCardinality())
			return nil
		}

		s, err := export.Stats(osfs.New(tree))
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "run:      %s\nsource:   %s\nexported: %s\n", s.RunID, s.Source, s.ExportedAt.Format("2006-01-02 15:04:05Z07:00"))
		fmt.Fprintf(out, "records:  %d (written %d, unknown %d, skipped %d)\n", s.Records, s.Written, s.Unknown, s.Skipped)
		names := make([]string, 0, len(s.Kinds))
		for name := range s.Kinds {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(out, "  %-20s %d\n", name, s.Kinds[name])
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().StringVarP(&statsKind, "kind", "k", "", "List the entries of one design kind from the index")
	rootCmd.AddCommand(statsCmd)
}
