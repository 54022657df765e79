package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sourcegraph/conc"

	"github.com/agenthands/compat/internal/app"
	"github.com/agenthands/compat/internal/config"
	"github.com/agenthands/compat/internal/server"
)

const (
	serverShutdownTimeout    = 10 * time.Second
	lifecycleShutdownTimeout = 10 * time.Second
	storageShutdownTimeout   = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to the TOML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "No .env file found, using environment")
	}

	cfg, loaded, err := config.LoadOrDefault(resolveConfigPath(*configPath))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := app.NewLogger(os.Stderr, cfg.Log.Level)
	if !loaded {
		logger.Info("no config file found, using defaults")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a, err := app.New(ctx, cfg, reg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}

	srv := server.NewServer(a.Engine, reg, cfg.Server.MaxUploadBytes, logger.With("component", "server"))
	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.SetupRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	var lifecycle conc.WaitGroup
	lifecycle.Go(func() {
		logger.Info("starting server", "port", cfg.Server.Port, "backend", cfg.Storage.Backend)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	})

	if a.Engine.Provider != nil {
		lifecycle.Go(func() {
			if _, err := a.Engine.RefreshCatalog(ctx); err != nil {
				logger.Warn("initial catalog refresh failed", "error", err)
			}
		})
		if minutes := cfg.Shopify.RefreshIntervalMinutes; minutes > 0 {
			lifecycle.Go(func() {
				a.RefreshLoop(ctx, time.Duration(minutes)*time.Minute, logger.With("component", "refresh"))
			})
		}
	}

	<-ctx.Done()
	logger.Info("shutdown signal received, initiating graceful shutdown")

	serverTimeout := time.Duration(cfg.Server.ShutdownSeconds) * time.Second
	if serverTimeout <= 0 {
		serverTimeout = serverShutdownTimeout
	}
	shutdown(logger, httpServer, &lifecycle, a, serverTimeout)
}

func resolveConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv("CONFIG_PATH"); env != "" {
		return env
	}
	return config.DefaultPath
}

func shutdown(logger *slog.Logger, httpServer *http.Server, lifecycle *conc.WaitGroup, a *app.App, serverTimeout time.Duration) {
	step := func(name string, timeout time.Duration, fn func(context.Context) error) {
		stepCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		logger.Info("shutdown: " + name)
		if err := fn(stepCtx); err != nil {
			logger.Error("shutdown: "+name+" failed", "error", err)
		}
	}

	step("stopping http server", serverTimeout, httpServer.Shutdown)

	step("waiting for background work", lifecycleShutdownTimeout, func(stepCtx context.Context) error {
		done := make(chan struct{})
		go func() {
			lifecycle.Wait()
			close(done)
		}()
		select {
		case <-done:
			return nil
		case <-stepCtx.Done():
			return fmt.Errorf("timeout waiting for goroutines: %w", stepCtx.Err())
		}
	})

	step("closing storage", storageShutdownTimeout, a.Close)
}
