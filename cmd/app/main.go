package main

import (
	"flag"
	"log"
	"os"

	"MarketCast/internal/di"
	"MarketCast/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s store=%s predictor=%s", cfg.Environment, cfg.Store.Backend, cfg.Predictor.Kind)
	if cfg.Cron.Secret == "" {
		log.Printf("cron.secret is empty: batch triggers will answer 500 until it is set")
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT or SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
