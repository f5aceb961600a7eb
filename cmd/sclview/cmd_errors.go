package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhamidi/sclview/format"
)

func newErrorsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors <file>",
		Short: "List the syntax errors of an SCL file in navigation order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := g.newSession()
			f, err := s.Load(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			location := color.New(color.Bold)
			message := color.New(color.FgRed)

			// Walk the navigator once around the registry.
			_, total := f.Navigator.Position()
			for range total {
				n, ok := s.NextError()
				if !ok {
					break
				}
				index, _ := s.ErrorPosition()
				fmt.Fprintf(out, "%s %s %s\n",
					location.Sprintf("%s:%d:%d:", f.Path, n.Span.Start.Row+1, n.Span.Start.Column+1),
					message.Sprint(format.ErrorMessage(n)),
					color.HiBlackString("(%d/%d)", index+1, total),
				)
			}
			if total == 0 {
				fmt.Fprintln(out, color.GreenString("%s: no syntax errors", f.Path))
			}
			return nil
		},
	}
	return cmd
}
