package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opencueforunreal/ue-worker-pool/internal/api"
	"github.com/opencueforunreal/ue-worker-pool/internal/config"
	"github.com/opencueforunreal/ue-worker-pool/internal/logger"
	"github.com/opencueforunreal/ue-worker-pool/internal/supervisor"
	"github.com/opencueforunreal/ue-worker-pool/internal/task"
	"github.com/opencueforunreal/ue-worker-pool/internal/worker"
)

var (
	serviceHost string
	servicePort int
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run the persistent worker pool daemon",
	RunE:  runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)
	serviceCmd.Flags().StringVar(&serviceHost, "host", "", "listen host (overrides WORKER_POOL_HOST)")
	serviceCmd.Flags().IntVar(&servicePort, "port", 0, "listen port (overrides WORKER_POOL_PORT)")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	if serviceHost != "" {
		cfg.WorkerPool.Host = serviceHost
	}
	if servicePort != 0 {
		cfg.WorkerPool.Port = servicePort
	}

	logger.Init(cfg.Logging)
	log := logger.Get()
	log.Info().Str("host", cfg.WorkerPool.Host).Int("port", cfg.WorkerPool.Port).Msg("starting worker pool service")

	queue := task.NewQueue()
	sup := supervisor.New()
	pool := worker.NewPool(cfg.WorkerPool, queue, sup)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := pool.Start(ctx); err != nil {
		return fmt.Errorf("starting worker pool: %w", err)
	}

	server := api.NewServer(queue, pool, pool.HostIP(), cfg.Metrics)
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.WorkerPool.Host, cfg.WorkerPool.Port),
		Handler:      server,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down worker pool service")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	cancel()
	if err := pool.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("worker pool shutdown error")
	}

	log.Info().Msg("worker pool service stopped")
	return nil
}
