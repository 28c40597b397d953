package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attrition-cli/internal/pipeline"
	"github.com/sells-group/attrition-cli/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the prediction API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		// A missing artifact is not fatal: the server starts and answers 503
		// on prediction routes until one is trained.
		svc, err := loadService()
		if err != nil {
			zap.L().Warn("starting without a model",
				zap.String("artifact", cfg.Model.ArtifactPath),
				zap.Error(err))
			svc = nil
		}

		srv := server.New(cfg.Server, st, svc)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		httpSrv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: srv.Router(),
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = httpSrv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

// loadService loads the published artifact and wraps it in a prediction
// service at the configured threshold.
func loadService() (*pipeline.Service, error) {
	if _, err := os.Stat(cfg.Model.ArtifactPath); err != nil {
		return nil, eris.Wrapf(pipeline.ErrPipelineUnavailable, "artifact %s", cfg.Model.ArtifactPath)
	}
	art, err := pipeline.LoadArtifact(cfg.Model.ArtifactPath)
	if err != nil {
		return nil, err
	}
	return pipeline.NewService(art, cfg.Model.Threshold)
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
