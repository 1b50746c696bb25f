package main

import (
	"context"
	"log"
	"os"

	"github.com/jagcoaching/speechcoach/internal/logging"
	"github.com/jagcoaching/speechcoach/internal/server"
	"github.com/jagcoaching/speechcoach/internal/server/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	logger := logging.New(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "server stopped with error", "error", err)
		os.Exit(1)
	}
}
