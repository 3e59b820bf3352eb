package cmd

import (
	"fmt"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/designtree/internal/export"
	"github.com/agentic-research/designtree/internal/ingest"
)

var (
	exportWorkers     int
	exportSkipUnknown bool
	exportNoValidate  bool
	exportSelector    string
	exportTable       string
)

var exportCmd = &cobra.Command{
	Use:   "export [source] [output-dir]",
	Short: "Write design records from a JSON or SQLite dump into a file tree",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := cfg.Output
		if len(args) == 2 {
			output = args[1]
		}

		opts := ingest.Options{Selector: cfg.Source.Selector, Table: cfg.Source.Table}
		if cmd.Flags().Changed("selector") {
			opts.Selector = exportSelector
		}
		if cmd.Flags().Changed("table") {
			opts.Table = exportTable
		}
		src, err := ingest.OpenSource(source, opts)
		if err != nil {
			return err
		}

		workers := cfg.Workers
		if cmd.Flags().Changed("workers") {
			workers = exportWorkers
		}
		engine := export.NewEngine(osfs.New(output), export.Options{
			Workers:         workers,
			SkipUnknown:     cfg.Export.SkipUnknown || exportSkipUnknown,
			ValidateScripts: cfg.ValidateScripts() && !exportNoValidate,
			Source:          source,
			Logger:          logger,
		})

		start := time.Now()
		s, err := engine.Export(cmd.Context(), src)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d of %d records into %s in %v (%d unknown, %d skipped).\n",
			s.Written, s.Records, output, time.Since(start).Round(time.Millisecond), s.Unknown, s.Skipped)
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVarP(&exportWorkers, "workers", "w", 0, "Records rendered concurrently (default from settings)")
	exportCmd.Flags().BoolVar(&exportSkipUnknown, "skip-unknown", false, "Drop records that match no design kind")
	exportCmd.Flags().BoolVar(&exportNoValidate, "no-validate", false, "Skip script syntax checks")
	exportCmd.Flags().StringVar(&exportSelector, "selector", "", "JSONPath selecting records in a JSON dump")
	exportCmd.Flags().StringVar(&exportTable, "table", "", "Table holding records in a SQLite dump")
	rootCmd.AddCommand(exportCmd)
}
