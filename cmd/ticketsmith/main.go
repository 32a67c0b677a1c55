package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/samad-cloud/ticketsmith/internal/config"
	"github.com/samad-cloud/ticketsmith/internal/health"
	"github.com/samad-cloud/ticketsmith/internal/orchestrator"
)

// main is the entry point for the Ticketsmith service.
//
// Ticketsmith is responsible for:
//   - Grouping raw website-audit findings into canonical issue groups
//   - Classifying and drafting tickets via the classifier agent
//   - Publishing drafted tickets to Jira with CSV attachments for large groups
//   - Persisting run artifacts to the blob store
//   - Gating re-runs behind tracking records so tickets are never duplicated
//   - Providing HTTP API for the dashboard to trigger and inspect runs
//
// Lifecycle:
//  1. Load configuration from environment variables
//  2. Initialize orchestrator with store connections and the pipeline
//  3. Start health check server
//  4. Start HTTP server (ticket generation API)
//  5. Listen for shutdown signals (SIGINT, SIGTERM)
//  6. Gracefully close all connections on shutdown
func main() {
	log.Printf("Ticketsmith starting...")

	// Load configuration from environment variables and .env file
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Configuration loaded successfully")
	log.Printf("  HTTP Port: %s", cfg.HTTPPort)
	log.Printf("  Health Port: %s", cfg.HealthPort)
	log.Printf("  Database Driver: %s", cfg.DatabaseDriver)
	log.Printf("  Mongo Database: %s", cfg.MongoDatabase)
	log.Printf("  Redis Addr: %s", cfg.RedisAddr)
	log.Printf("  NATS URL: %s", cfg.NatsURL)
	log.Printf("  Jira Project: %s", cfg.JiraProjectKey)
	log.Printf("  Classifier Batch Size: %d", cfg.ClassifierBatchSize)

	// Create orchestrator to manage service lifecycle
	orch := orchestrator.NewOrchestrator(cfg)

	// Setup graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize store connections and the pipeline
	if err := orch.Start(ctx); err != nil {
		log.Fatalf("Failed to start orchestrator: %v", err)
	}

	// Listen for shutdown signals (Ctrl+C, Docker stop, k8s termination)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Start health check HTTP server for container orchestration
	health.StartHealthCheckServer(cfg.HealthPort)

	// Start the ticket generation API in background goroutine
	go func() {
		if err := orch.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("Orchestrator error: %v", err)
		}
	}()

	// Block until shutdown signal received
	<-sigChan
	log.Printf("Shutdown signal received, initiating graceful shutdown...")

	// Cancel context to stop servers
	cancel()

	// Close all connections and cleanup resources
	if err := orch.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Printf("Ticketsmith stopped successfully")
}
