package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/niuginipay/greenfees/internal/app"
	"github.com/niuginipay/greenfees/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	command := "serve"
	if args := flag.Args(); len(args) > 0 {
		command = args[0]
	}

	cfg, errLoad := config.Load(*configPath)
	if errLoad != nil {
		log.WithError(errLoad).Fatal("load configuration failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch command {
	case "serve":
		if errRun := app.RunServer(ctx, cfg); errRun != nil {
			log.WithError(errRun).Fatal("server failed")
		}
	case "migrate":
		if errMigrate := app.Migrate(ctx, cfg); errMigrate != nil {
			log.WithError(errMigrate).Fatal("migrate failed")
		}
		log.Info("migrations applied")
	default:
		log.Errorf("unknown command %q (expected serve or migrate)", command)
		os.Exit(2)
	}
}
