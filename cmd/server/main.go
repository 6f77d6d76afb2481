package main

import (
	"context"
	"log"
	"os"

	"github.com/dmitrijs2005/gophsend/internal/buildinfo"
	"github.com/dmitrijs2005/gophsend/internal/logging"
	"github.com/dmitrijs2005/gophsend/internal/server"
	"github.com/dmitrijs2005/gophsend/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx := context.Background()
	cfg := config.LoadConfig()

	logger, err := logging.NewProductionZapLogger(cfg.Debug)
	if err != nil {
		log.Printf("%v", err)
		return
	}
	defer func() { _ = logger.Sync() }()

	app, err := server.NewApp(ctx, cfg, logger)
	if err != nil {
		logger.Error(ctx, "init failed", "error", err)
		return
	}

	app.Run(ctx)
}
