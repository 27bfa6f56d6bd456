package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/filedesk/internal/infrastructure/config"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/logging"
	"github.com/GriffinCanCode/filedesk/internal/infrastructure/server"
)

func main() {
	configFile := flag.String("config", "", "YAML or TOML config file (overrides CONFIG_FILE)")
	root := flag.String("root", "", "Storage root (overrides STORAGE_ROOT)")
	port := flag.String("port", "", "Server port (overrides PORT)")
	flag.Parse()

	if *configFile != "" {
		if err := os.Setenv("CONFIG_FILE", *configFile); err != nil {
			log.Fatalf("Failed to set config file: %v", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *root != "" {
		cfg.Storage.Root = *root
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		Output:      cfg.Logging.Output,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}

	srv, err := server.NewServer(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create server", zap.Error(err))
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Run()
	}()

	select {
	case sig := <-sigChan:
		logger.Info("Shutting down gracefully", zap.String("signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Error during shutdown", zap.Error(err))
		}
	case err := <-errChan:
		if err != nil {
			logger.Fatal("Server error", zap.Error(err))
		}
	}
}
