// Package main runs the tracker as an MCP stdio server. It requires no external databases.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/acl-rts-tracker/internal/config"
	"github.com/acl-rts-tracker/internal/mcp"
)

func main() {
	// stdout carries the protocol
	log.SetOutput(os.Stderr)

	cfg := config.LoadLiteConfig()
	log.Printf("Data directory: %s", cfg.DataDir)

	server, err := mcp.NewLiteServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}
	defer server.Close()

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		log.Printf("MCP server failed: %v", err)
		return
	}

	log.Println("ACL RTS Tracker MCP Server (Lite) stopped")
}
