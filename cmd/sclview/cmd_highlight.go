package main

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhamidi/sclview/highlight"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/span"
)

func newHighlightCmd(g *globals) *cobra.Command {
	var listRegions bool

	cmd := &cobra.Command{
		Use:   "highlight <file>",
		Short: "Print an SCL file with syntax highlighting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := g.newSession()
			f, err := s.Load(args[0])
			if err != nil {
				return err
			}
			if !f.Highlighted {
				log.Warningf("%s: printing without highlighting", f.Path)
			}
			if listRegions {
				for _, r := range f.Regions {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", r.Span, r.Tag)
				}
				return nil
			}
			return printHighlighted(cmd.OutOrStdout(), f, g.cfg.HighlightTheme())
		},
	}

	cmd.Flags().BoolVar(&listRegions, "regions", false, "list the resolved regions instead of printing the source")

	return cmd
}

func printHighlighted(w io.Writer, f *session.File, theme highlight.Theme) error {
	var errors []span.Span
	for _, ref := range f.Index.Errors() {
		errors = append(errors, f.Index.MustNode(ref).Span)
	}

	cache := make(map[string]*color.Color)
	var buf bytes.Buffer
	for _, run := range highlight.Paint(len(f.Source), f.Regions, errors) {
		text := f.Display(run.Start, run.End)
		if len(run.Tags) == 0 {
			buf.WriteString(text)
			continue
		}
		key := fmt.Sprint(run.Tags)
		c, ok := cache[key]
		if !ok {
			c = terminalColor(theme.Style(run.Tags))
			cache[key] = c
		}
		// Paint each line on its own so a newline never ends up inside an
		// escape sequence.
		for i, line := range strings.Split(text, "\n") {
			if i > 0 {
				buf.WriteByte('\n')
			}
			if len(line) > 0 {
				buf.WriteString(c.Sprint(line))
			}
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func terminalColor(s highlight.Style) *color.Color {
	c := color.New()
	if r, g, b, ok := parseHex(s.Foreground); ok {
		c.AddRGB(r, g, b)
	}
	if r, g, b, ok := parseHex(s.Background); ok {
		c.AddBgRGB(r, g, b)
	}
	if s.Bold {
		c.Add(color.Bold)
	}
	if s.Italic {
		c.Add(color.Italic)
	}
	if s.Underline {
		c.Add(color.Underline)
	}
	return c
}

// parseHex reads #RGB and #RRGGBB colors.
func parseHex(hex string) (r, g, b int, ok bool) {
	if len(hex) == 4 {
		hex = string([]byte{'#', hex[1], hex[1], hex[2], hex[2], hex[3], hex[3]})
	}
	if len(hex) != 7 || hex[0] != '#' {
		return 0, 0, 0, false
	}
	v, err := strconv.ParseUint(hex[1:], 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff), true
}
