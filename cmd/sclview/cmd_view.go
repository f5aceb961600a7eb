package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/dhamidi/sclview/tui"
)

func newViewCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "view <file>",
		Short: "Browse an SCL file's syntax tree in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s := g.newSession()
			if _, err := s.Load(args[0]); err != nil {
				return err
			}

			p := tea.NewProgram(tui.New(s, g.cfg.HighlightTheme()), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running terminal inspector: %w", err)
			}
			return nil
		},
	}
}
