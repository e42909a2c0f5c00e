package main

import (
	"flag"
	"log"

	"github.com/Scolaria-io/scolaria/internal/api"
	"github.com/Scolaria-io/scolaria/internal/config"
	"github.com/Scolaria-io/scolaria/internal/database"
	"github.com/Scolaria-io/scolaria/internal/logger"
	"go.uber.org/zap"
)

const version = "0.1.0"

func main() {
	configPath := flag.String("config", "app.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zlog := logger.New(cfg.Environment)
	defer zlog.Sync()

	zlog.Info("starting Scolaria API",
		zap.String("version", version),
		zap.String("environment", cfg.Environment),
		zap.String("database", cfg.DatabaseType))

	store, err := database.Init(cfg)
	if err != nil {
		zlog.Fatal("failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	app, err := api.NewApi(*cfg, zlog, store)
	if err != nil {
		zlog.Fatal("failed to wire API", zap.Error(err))
	}

	if err := app.Serve(); err != nil {
		zlog.Fatal("server stopped", zap.Error(err))
	}
}
