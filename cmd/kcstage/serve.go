package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bhanuswaroop1247/keratoconus-severity-ml/internal/pipeline"
	"github.com/bhanuswaroop1247/keratoconus-severity-ml/internal/webapp"
	kclog "github.com/bhanuswaroop1247/keratoconus-severity-ml/pkg/log"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction web form",
	Long: "Loads the trained model artifact and serves the staging form.\n" +
		"Run the pipeline command first to produce the artifact.",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		modelPath, _ := cmd.Flags().GetString("model")

		log := slog.Default().With(kclog.StageKey, "serve")
		srv, err := webapp.New(addr, modelPath, log)
		if err != nil {
			log.Error("server setup failed", kclog.ErrAttr(err))
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(),
			os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			log.Error("server failed", kclog.ErrAttr(err))
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("forced shutdown", kclog.ErrAttr(err))
			return err
		}
		log.Info("server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address")
	serveCmd.Flags().String("model", pipeline.DefaultModelPath,
		"Path to the trained model artifact")
}
