package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/kinlink/internal/buildinfo"
	"github.com/dmitrijs2005/kinlink/internal/server"
	"github.com/dmitrijs2005/kinlink/internal/server/config"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.LoadConfig()

	app, err := server.NewApp(ctx, cfg)
	if err != nil {
		log.Printf("registry: %v", err)
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		log.Printf("registry stopped: %v", err)
		os.Exit(1)
	}
}
