// Command subtided runs the processing daemon: it owns the record store,
// worker pool, progress hub, and HTTP API.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"subtide/internal/config"
	"subtide/internal/daemon"
	"subtide/internal/deps"
	"subtide/internal/logging"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Local .env files carry the translation API key in development.
	_ = godotenv.Load()

	cfg, configPath, usedDefaults, err := config.Load(os.Getenv("SUBTIDE_CONFIG"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Paths:  []string{"stderr"},
	})
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	if usedDefaults {
		logger.Info("no config file found, using defaults",
			logging.String("path", configPath))
	} else {
		logger.Info("configuration loaded", logging.String("path", configPath))
	}

	statuses := deps.CheckBinaries(deps.Requirements(cfg))
	if missing := deps.MissingRequired(statuses); len(missing) > 0 {
		logger.Warn("external tools missing, jobs will fail until installed",
			logging.String("missing", strings.Join(missing, ", ")))
	}

	d, err := daemon.New(cfg, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		os.Exit(1)
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("subtided shutting down")
	d.Stop()
}
