package main

import (
	"context"
	"log"

	cfg "travelstory/src/configuration"
	"travelstory/src/logging"
	server "travelstory/src/server"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// a missing .env is fine, the environment may already be populated
	_ = godotenv.Load()

	config, err := cfg.ReadProperties()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.New(config.LogLevel, config.IsProduction())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	if err := server.RunServer(context.Background(), config, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
