package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"noisepay/internal/directory"
	"noisepay/internal/observability"
)

func main() {
	var (
		addr     string
		level    string
		jsonLogs bool
	)
	root := &cobra.Command{
		Use:          "directory",
		Short:        "In-memory noisepay endpoint directory",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := observability.NewLogger("noisepay-directory", observability.LogOptions{Level: level, JSON: jsonLogs})
			srv := &http.Server{
				Addr:              addr,
				Handler:           directory.NewServer(log).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(sctx)
			}()

			log.Info().Str("addr", addr).Msg("directory listening")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	root.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	root.Flags().StringVar(&level, "log-level", "info", "log level")
	root.Flags().BoolVar(&jsonLogs, "log-json", false, "log JSON instead of console output")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
