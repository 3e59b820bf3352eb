package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentic-research/designtree/internal/cdrecord"
)

var (
	encodeKind string
	encodeName string
	encodeMIME string
)

var encodeCmd = &cobra.Command{
	Use:   "encode [input] [output]",
	Short: "Package a file as an attachment record stream",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := cdrecord.ParseKind(encodeKind)
		if err != nil {
			return err
		}
		name := encodeName
		if name == "" {
			name = filepath.Base(args[0])
		}
		stream, err := cdrecord.EncodeFile(args[0], cdrecord.Attachment{Kind: kind, Name: name, MIMEHint: encodeMIME})
		if err != nil {
			return err
		}
		if err := os.WriteFile(args[1], stream, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", args[1], err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes, item cap %d\n", kind, len(stream), cdrecord.ItemCap(kind))
		return nil
	},
}

var decodeCmd = &cobra.Command{
	Use:   "decode [input] [output]",
	Short: "Unpack an attachment record stream",
	Long:  "Decode prints the stream layout and, given an output path, writes the payload.",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stream, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		dec, err := cdrecord.Decode(stream)
		if err != nil {
			return fmt.Errorf("decode %s: %w", args[0], err)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "kind:     %s\npayload:  %d bytes\nsegments: %d\n", dec.Kind, len(dec.Data), len(dec.Segments))
		if dec.Kind == cdrecord.Image {
			fmt.Fprintf(out, "image:    type %d, %dx%d\n", dec.ImageType, dec.Width, dec.Height)
		}
		if len(args) == 2 {
			if err := os.WriteFile(args[1], dec.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", args[1], err)
			}
		}
		return nil
	},
}

func init() {
	encodeCmd.Flags().StringVarP(&encodeKind, "kind", "k", "file", "Attachment kind: file, image or script")
	encodeCmd.Flags().StringVar(&encodeName, "name", "", "Attachment name (default input base name)")
	encodeCmd.Flags().StringVar(&encodeMIME, "mime", "", "Content type hint for images")
	rootCmd.AddCommand(encodeCmd, decodeCmd)
}
