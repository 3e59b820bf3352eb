package cmd

import (
	"fmt"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/designtree/internal/writeback"
)

var importNoValidate bool

var importCmd = &cobra.Command{
	Use:   "import [tree] [output-dir]",
	Short: "Rebuild interchange documents from an exported file tree",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		im := writeback.NewImporter(osfs.New(args[0]), osfs.New(args[1]), writeback.Options{
			ValidateScripts: cfg.ValidateScripts() && !importNoValidate,
			Logger:          logger,
		})
		res, err := im.Import(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, rb := range res.Rebuilt {
			fmt.Fprintf(out, "%-20s %s\n", rb.Kind, rb.Output)
		}
		fmt.Fprintf(out, "Rebuilt %d documents (%d files skipped).\n", len(res.Rebuilt), len(res.Skipped))
		return nil
	},
}

func init() {
	importCmd.Flags().BoolVar(&importNoValidate, "no-validate", false, "Skip script syntax checks")
	rootCmd.AddCommand(importCmd)
}
