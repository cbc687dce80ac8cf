// Package main runs the examination recommendation engine as a stdio MCP server. It
// needs no external database: feedback is kept in SQLite under the data directory.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/faskesq-clinical-assist/internal/config"
	"github.com/faskesq-clinical-assist/internal/mcp"
	"github.com/faskesq-clinical-assist/internal/service"
)

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	_ = godotenv.Load()
	cfg := config.LoadLiteConfig()

	rules, err := service.LoadRules(os.Getenv("FASKESQ_RULES_FILE"))
	if err != nil {
		log.Fatalf("Failed to load rules: %v", err)
	}

	log.Printf("Starting FaskesQ MCP server (provider %s, data directory %s)", cfg.Provider, cfg.DataDir)

	server, err := mcp.NewServer(cfg, mcp.WithRules(rules))
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil && ctx.Err() == nil {
		server.Close()
		log.Fatalf("MCP server failed: %v", err)
	}

	log.Println("FaskesQ MCP server stopped")
}
