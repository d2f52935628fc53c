package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/federation/internal/app"
	"github.com/dropDatabas3/federation/internal/config"
	"github.com/dropDatabas3/federation/internal/http/server"
	"github.com/dropDatabas3/federation/internal/observability/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "ruta al YAML de configuración")
	envFile := flag.String("env-file", ".env", "archivo .env opcional")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		log.Printf("no se pudo leer %s: %v", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Version:     cfg.App.Version,
	})
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, app.Options{})
	if err != nil {
		logger.L().Fatal("wiring failed", logger.Err(err))
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.L().Warn("cleanup error", logger.Err(err))
		}
	}()

	srv := server.New(cfg, a.Handler)
	if err := server.Run(ctx, srv, config.Dur(cfg.Server.ShutdownTimeout, 10*time.Second)); err != nil {
		logger.L().Error("http server failed", logger.Err(err))
	}
}
