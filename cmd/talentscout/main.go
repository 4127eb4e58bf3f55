package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/abrezinsky/talentscout/internal/app"
	"github.com/abrezinsky/talentscout/internal/config"
	"github.com/abrezinsky/talentscout/internal/logger"
)

var (
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to a YAML config file")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `TalentScout - Youth Sports Talent Tracking

Usage:
  talentscout [options]

Options:
  -config string  YAML config file (optional)
  -version        Show version and exit
  -help           Show this help message

Every config key can also be set through the environment with the
%s prefix, e.g. %sADDR=:9090 or %sDB_DRIVER=sqlite.

Examples:
  talentscout                              # Run on :8081 with talentscout.db
  talentscout -config /etc/talentscout.yaml
  TALENTSCOUT_LOG_LEVEL=debug talentscout  # Verbose logging

`, config.EnvPrefix, config.EnvPrefix, config.EnvPrefix)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("talentscout %s\n", version)
		os.Exit(0)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	appLog := logger.NewWithWriter(os.Stderr, logger.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	appLog.Info("Starting talentscout", "version", version, "driver", cfg.DBDriver, "db", cfg.DBPath)

	a, err := app.New(ctx, cfg, appLog)
	if err != nil {
		log.Fatal("Failed to initialize application: ", err)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		appLog.Error("Server stopped", "error", err)
		a.Close()
		os.Exit(1)
	}
}
