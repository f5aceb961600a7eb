package main

import (
	"github.com/spf13/cobra"

	"github.com/dhamidi/sclview/lsp"
	"github.com/dhamidi/sclview/scl"
)

func newLSPCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "lsp",
		Short: "Start the Language Server Protocol server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			server := lsp.NewServer(scl.NewParser(), version)
			return server.RunStdio()
		},
	}
}
