package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bhandras/zenith/internal/app"
	"github.com/bhandras/zenith/internal/config"
	"github.com/bhandras/zenith/internal/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(config.Overrides{})
	if err != nil {
		logger.Errorf("Failed to load config: %v", err)
		os.Exit(1)
	}

	logger.SetLevel(cfg.Level())

	// Set Gin mode
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	server, err := app.New(cfg)
	if err != nil {
		logger.Errorf("%v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		logger.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}
