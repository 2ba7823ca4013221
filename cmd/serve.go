package main

import (
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/gridcast/internal/server"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the heatmap and forecast API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := initService(ctx)
		if err != nil {
			return err
		}
		defer svc.Close()

		// A failed initial load is not fatal: the service starts in a
		// "no data" state and an admin reload can recover it.
		if err := svc.Store.Reload(ctx); err != nil {
			zap.L().Error("initial snapshot load failed, serving without data", zap.Error(err))
		}

		api := server.New(cfg, svc.Store, svc.Engine, svc.Engine.Params(), svc.Indexer, svc.Catalog, version)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: api.Router(),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server",
			zap.Int("port", port),
			zap.Ints("resolutions", cfg.Grid.Resolutions),
			zap.Int("k_anon_default", cfg.Privacy.K),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
