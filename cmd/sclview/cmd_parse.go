package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dhamidi/sclview/format"
	"github.com/dhamidi/sclview/scl"
	"github.com/dhamidi/sclview/tree"
)

func newParseCmd(g *globals) *cobra.Command {
	var outputFormat string
	var namedOnly bool
	var withText bool
	var withoutComments bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse an SCL file and dump its syntax tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := args[0]
			src, err := os.ReadFile(filename)
			if err != nil {
				return fmt.Errorf("read scl file: %w", err)
			}

			var opts []scl.Option
			if withoutComments {
				opts = append(opts, scl.WithoutComments())
			}
			parsed, err := scl.NewParser(opts...).Parse(src)
			if err != nil {
				return fmt.Errorf("parse %s: %w", filename, err)
			}
			ix, err := tree.Build(parsed.RootNode())
			if err != nil {
				return fmt.Errorf("index %s: %w", filename, err)
			}

			var encoder format.Encoder
			switch outputFormat {
			case "outline":
				encoder = format.NewOutlineEncoder(cmd.OutOrStdout()).NamedOnly(namedOnly)
			case "json":
				enc := format.NewJSONEncoder(cmd.OutOrStdout())
				if withText {
					enc.WithSource(src)
				}
				encoder = enc
			default:
				return fmt.Errorf("unknown format: %s", outputFormat)
			}

			if err := encoder.Encode(ix); err != nil {
				return fmt.Errorf("encode: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "outline", "output format (outline, json)")
	cmd.Flags().BoolVar(&namedOnly, "named", false, "outline only named nodes and errors")
	cmd.Flags().BoolVar(&withText, "text", false, "include leaf text in json output")
	cmd.Flags().BoolVar(&withoutComments, "no-comments", false, "leave comments out of the tree")

	return cmd
}
