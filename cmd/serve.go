package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hybridchat/src/logger"
	"hybridchat/src/viz"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the graph visualization and metrics endpoints",
	RunE: func(cmd *cobra.Command, args []string) error {
		log := logger.Logger

		srv := viz.NewServer(cfg.Viz, log)

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelShutdown()
			log.Info().Msg("Shutting down visualization server")
			return srv.Shutdown(shutdownCtx)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
