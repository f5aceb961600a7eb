package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dhamidi/sclview/batch"
	"github.com/dhamidi/sclview/scl"
	"github.com/dhamidi/sclview/session"
	"github.com/dhamidi/sclview/ui"
)

func newUICmd(g *globals) *cobra.Command {
	var addr string
	var watch bool

	cmd := &cobra.Command{
		Use:   "ui [file]",
		Short: "Start the web inspector",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("addr") {
				addr = g.cfg.UI.Addr
			}

			s := g.newSession()
			if len(args) == 1 {
				if _, err := s.Load(args[0]); err != nil {
					return err
				}
			}
			jobs := batch.NewJobs(batch.New(scl.NewParser(), g.cfg.BatchOptions()...))
			server, err := ui.NewServer(s, jobs, g.cfg.HighlightTheme())
			if err != nil {
				return fmt.Errorf("create server: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			displayAddr := addr
			if strings.HasPrefix(addr, ":") {
				displayAddr = "localhost" + addr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Starting server at http://%s\n", displayAddr)
			return serve(ctx, &http.Server{Addr: addr, Handler: server}, jobs, s, watch, g.cfg.WatchInterval)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "address to listen on")
	cmd.Flags().BoolVarP(&watch, "watch", "w", true, "reload the current file when it changes on disk")

	return cmd
}

// serve runs the HTTP server, the scan worker, and the file watcher until
// ctx is done or one of them fails.
func serve(ctx context.Context, srv *http.Server, jobs *batch.Jobs, s *session.Session, watch bool, interval time.Duration) error {
	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	group.Go(func() error {
		return jobs.Run(ctx)
	})
	if watch {
		watcher := session.NewWatcher(s, interval, func(f *session.File, err error) {
			if err != nil {
				log.Warningf("reload: %v", err)
				return
			}
			log.Infof("reloaded %s", f.Path)
		})
		group.Go(func() error {
			return watcher.Run(ctx)
		})
	}

	return group.Wait()
}
