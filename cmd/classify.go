package cmd

import (
	"fmt"
	"io"
	"slices"

	"github.com/spf13/cobra"

	"github.com/agentic-research/designtree/api"
	"github.com/agentic-research/designtree/internal/design"
	"github.com/agentic-research/designtree/internal/ingest"
)

var (
	classifyClass    string
	classifyFlags    string
	classifyFlagsExt string
	classifyTitle    string
	classifyAssist   int
	classifyItems    []string
)

var classifyCmd = &cobra.Command{
	Use:   "classify [source]",
	Short: "Show the design kind and tree path of records",
	Long: `With a source, classify every record of a JSON or SQLite dump.
Without one, classify a single record described by flags.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if len(args) == 1 {
			src, err := ingest.OpenSource(args[0], ingest.Options{Selector: cfg.Source.Selector, Table: cfg.Source.Table})
			if err != nil {
				return err
			}
			return src.Each(cmd.Context(), func(rec api.Record) error {
				r := design.Record{
					Class: rec.Class, Flags: rec.Flags, FlagsExt: rec.FlagsExt, Title: rec.Title,
					HasItem: rec.HasItem, AssistType: rec.AssistType,
				}
				printClassified(out, rec.NoteID, r)
				return nil
			})
		}

		class, err := design.ParseClass(classifyClass)
		if err != nil {
			return err
		}
		r := design.Record{
			Class:    class,
			Flags:    classifyFlags,
			FlagsExt: classifyFlagsExt,
			Title:    classifyTitle,
			HasItem:  func(name string) bool { return slices.Contains(classifyItems, name) },
		}
		if cmd.Flags().Changed("assist-type") {
			r.AssistType = &classifyAssist
		}
		printClassified(out, "-", r)
		return nil
	},
}

func printClassified(w io.Writer, noteID string, r design.Record) {
	kind := design.Classify(r)
	p, _, format := design.Locate(kind, r.Title)
	fmt.Fprintf(w, "%-10s %-20s %-13s %s\n", noteID, kind, format, p)
}

func init() {
	classifyCmd.Flags().StringVar(&classifyClass, "class", "form", "Note class name or hex code")
	classifyCmd.Flags().StringVar(&classifyFlags, "flags", "", "$Flags value")
	classifyCmd.Flags().StringVar(&classifyFlagsExt, "flags-ext", "", "$FlagsExt value")
	classifyCmd.Flags().StringVar(&classifyTitle, "title", "", "$TITLE value")
	classifyCmd.Flags().IntVar(&classifyAssist, "assist-type", 0, "$AssistType value")
	classifyCmd.Flags().StringSliceVar(&classifyItems, "item", nil, "Item names present on the record")
	rootCmd.AddCommand(classifyCmd)
}
