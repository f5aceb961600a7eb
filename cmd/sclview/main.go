package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/dhamidi/sclview/config"
)

var version = "0.1.0"

// globals holds the persistent flags and what they resolve to.
type globals struct {
	verbose    int
	logPath    string
	configPath string
	colorMode  string

	cfg *config.Config
}

func main() {
	if err := newRootCmd(&globals{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sclview:", err)
		os.Exit(1)
	}
}

func newRootCmd(g *globals) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "sclview",
		Short:         "Inspect Siemens SCL sources",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.setup()
		},
	}
	rootCmd.PersistentFlags().CountVarP(&g.verbose, "verbose", "v", "log more (repeat for more detail)")
	rootCmd.PersistentFlags().StringVar(&g.logPath, "log", "", "write logs to this file instead of stderr")
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default: .sclview.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&g.colorMode, "color", "auto", "colorize output (auto, always, never)")

	rootCmd.AddCommand(newParseCmd(g))
	rootCmd.AddCommand(newErrorsCmd(g))
	rootCmd.AddCommand(newHighlightCmd(g))
	rootCmd.AddCommand(newScanCmd(g))
	rootCmd.AddCommand(newUICmd(g))
	rootCmd.AddCommand(newLSPCmd(g))
	rootCmd.AddCommand(newViewCmd(g))

	return rootCmd
}

func (g *globals) setup() error {
	var logPath *string
	if g.logPath != "" {
		logPath = &g.logPath
	}
	commonlog.Configure(g.verbose, logPath)

	switch g.colorMode {
	case "always":
		color.NoColor = false
	case "never":
		color.NoColor = true
	case "auto":
	default:
		return fmt.Errorf("unknown color mode %q (expected auto, always, never)", g.colorMode)
	}

	path := g.configPath
	if path == "" {
		if wd, err := os.Getwd(); err == nil {
			path, _ = config.Discover(wd)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	g.cfg = cfg
	return nil
}
