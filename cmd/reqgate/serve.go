package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/metalagman/reqgate/internal/db"
	"github.com/metalagman/reqgate/internal/settings"
	"github.com/metalagman/reqgate/internal/web"
	"github.com/metalagman/reqgate/internal/workflow"
)

func serveCmd() *cobra.Command {
	var port int
	var noAudit bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the quality gate as an HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := settings.Get()
			if err != nil {
				return err
			}
			if port == 0 {
				port = s.Port
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			wf, err := buildWorkflow(ctx, s, workflow.DefaultConfig())
			if err != nil {
				return err
			}

			var store *db.Store
			if !noAudit {
				storeDB, closeFn, err := openDB(s)
				if err != nil {
					return err
				}
				defer closeFn()
				store = db.NewStore(storeDB)
			}

			srv, err := web.NewServer(wf, store)
			if err != nil {
				return err
			}

			httpSrv := &http.Server{
				Addr:              fmt.Sprintf(":%d", port),
				Handler:           srv.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				log.Info().Int("port", port).Msg("http server listening")
				errCh <- httpSrv.ListenAndServe()
			}()

			select {
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				log.Info().Msg("shutting down")
				return httpSrv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "listen port (defaults to REQGATE_PORT)")
	cmd.Flags().BoolVar(&noAudit, "no-audit", false, "disable run persistence")
	return cmd
}
