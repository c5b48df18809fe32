package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ogulcanaydogan/liteclient/internal/server"
	"github.com/ogulcanaydogan/liteclient/pkg/auth"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the authenticated budget API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	logger := a.logger

	pruner, err := auth.NewPruner(a.store, cfg.Session.PruneSchedule, logger.Named("pruner"))
	if err != nil {
		return err
	}
	if _, err := pruner.Prune(cmd.Context()); err != nil {
		logger.Warn("initial session prune failed", zap.Error(err))
	}
	pruner.Start()
	defer pruner.Stop()

	apiServer := server.NewServer(a.router, a.auth, logger.Named("http"), server.Options{
		CookieSecure: cfg.Session.CookieSecure,
		MaxBodySize:  cfg.Server.MaxBodySize,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           apiServer.Handler(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("listen", cfg.Server.Listen),
			zap.String("upstream", cfg.Upstream.BaseURL),
		)
		fmt.Fprintf(os.Stderr, "liteclient listening on %s\n", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}
