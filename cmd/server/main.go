// Command server runs the local bridge between the student's UI and Moodle.
//
// Configuration is read from eljunior.yaml (optional), .env (optional) and
// ELJUNIOR_* environment variables; see internal/config.
package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sakif/eljunior/internal/config"
	"github.com/sakif/eljunior/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (yaml, toml or json)")
	dotEnvPath := flag.String("env-file", ".env", "path to a .env file, ignored if missing")
	flag.Parse()

	cfg, err := config.Load(*configPath, *dotEnvPath)
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.Log.SlogLevel(),
	}))
	slog.SetDefault(logger)

	srv, err := server.New(cfg, logger, server.Deps{})
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
