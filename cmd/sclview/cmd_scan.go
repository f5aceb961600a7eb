package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dhamidi/sclview/batch"
	"github.com/dhamidi/sclview/scl"
)

func newScanCmd(g *globals) *cobra.Command {
	var all bool
	var gitignore bool
	var hidden bool

	cmd := &cobra.Command{
		Use:   "scan <dir>",
		Short: "Parse every SCL file under a directory and report those with errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := g.cfg.BatchOptions()
			if cmd.Flags().Changed("gitignore") {
				opts = append(opts, batch.WithGitignore(gitignore))
			}
			if cmd.Flags().Changed("skip-hidden") {
				opts = append(opts, batch.WithSkipHidden(hidden))
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return runScan(ctx, cmd, batch.New(scl.NewParser(), opts...), args[0], all)
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "list clean files too")
	cmd.Flags().BoolVar(&gitignore, "gitignore", false, "skip files matched by the root .gitignore")
	cmd.Flags().BoolVar(&hidden, "skip-hidden", false, "skip dot files and directories")

	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, scanner *batch.Scanner, root string, all bool) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", root)
	}

	out := cmd.OutOrStdout()
	bad := color.New(color.FgRed)
	good := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	var files, errored, failed int
	for entry, err := range scanner.Scan(ctx, root) {
		var fileErr *batch.FileError
		switch {
		case errors.As(err, &fileErr):
			failed++
			log.Warningf("%v", fileErr)
			fmt.Fprintf(out, "%s %s\n", warn.Sprint("!"), fileErr)
		case err != nil:
			return fmt.Errorf("scan %s: %w", root, err)
		case entry.HasError:
			files++
			errored++
			fmt.Fprintf(out, "%s %s\n", bad.Sprint("✗"), entry.Path)
		default:
			files++
			if all {
				fmt.Fprintf(out, "%s %s\n", good.Sprint("✓"), entry.Path)
			}
		}
	}

	fmt.Fprintf(out, "\n%d files scanned, %s, %s\n",
		files,
		bad.Sprintf("%d with syntax errors", errored),
		warn.Sprintf("%d unreadable", failed),
	)
	return nil
}
