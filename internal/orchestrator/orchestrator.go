package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/samad-cloud/ticketsmith/internal/blobstore"
	"github.com/samad-cloud/ticketsmith/internal/classifier"
	"github.com/samad-cloud/ticketsmith/internal/config"
	"github.com/samad-cloud/ticketsmith/internal/dispatcher"
	"github.com/samad-cloud/ticketsmith/internal/eventbus"
	"github.com/samad-cloud/ticketsmith/internal/httpapi"
	"github.com/samad-cloud/ticketsmith/internal/jira"
	"github.com/samad-cloud/ticketsmith/internal/pipeline"
	"github.com/samad-cloud/ticketsmith/internal/publisher"
	"github.com/samad-cloud/ticketsmith/internal/runlock"
	"github.com/samad-cloud/ticketsmith/internal/runstore"
	"github.com/samad-cloud/ticketsmith/internal/runtracker"
)

// Orchestrator manages the ticket generation service lifecycle and wires
// the pipeline to its collaborators.
//
// Lifecycle:
//  1. Start() - Connects stores and collaborators, builds the pipeline and HTTP API
//  2. Run() - Starts the HTTP server and blocks until context is cancelled
//  3. Stop() - Gracefully closes all connections and resources
//
// The orchestrator implements graceful degradation:
//   - Tracking store failure: service cannot start (audit metadata is required)
//   - Blob store failure: service cannot start (raw audits and artifacts live there)
//   - Redis failure: runs proceed without duplicate-run protection
//   - NATS failure: runs complete but no lifecycle events are published
type Orchestrator struct {
	config *config.Config

	// Core components
	tracker *runtracker.Tracker

	// Collaborator connections
	runStore      runstore.RunStore
	blobStore     blobstore.Store
	runLocker     *runlock.Locker     // optional
	natsPublisher *eventbus.Publisher // optional

	// Servers
	httpServer *httpapi.Server
}

// NewOrchestrator creates a new Orchestrator instance with the provided
// configuration. The orchestrator is not started until Start() is called.
func NewOrchestrator(cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		config: cfg,
	}
}

// Start initializes all collaborator connections and builds the pipeline.
// This method must be called before Run().
//
// Start connects to:
//   - Tracking store (required - audit metadata and run records)
//   - Blob store (required - raw audits and run artifacts)
//   - Redis (optional - run locks for duplicate-run protection)
//   - NATS event bus (optional - run lifecycle events)
//
// Returns an error if any required component fails to initialize.
func (o *Orchestrator) Start(ctx context.Context) error {
	log.Printf("Starting Ticketsmith Orchestrator...")

	if err := o.connectStores(ctx); err != nil {
		return err
	}

	// Optional collaborators - warnings logged on failure
	o.connectRedis()
	o.connectNATS()

	o.buildPipeline()

	log.Printf("Ticketsmith Orchestrator started successfully")
	return nil
}

// connectStores establishes the required tracking and blob store
// connections. Both are required: without them no run can be gated or
// persisted.
func (o *Orchestrator) connectStores(ctx context.Context) error {
	log.Printf("Connecting to tracking store (%s)...", o.config.DatabaseDriver)

	runStore, err := runstore.New(ctx, o.config.DatabaseDriver, o.config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to tracking store (required): %w", err)
	}
	o.runStore = runStore

	log.Printf("Connecting to blob store at: %s", o.config.MongoURL)

	blobStore, err := blobstore.NewMongoStore(ctx, o.config.MongoURL, o.config.MongoDatabase)
	if err != nil {
		o.runStore.Close()
		return fmt.Errorf("failed to connect to blob store (required): %w", err)
	}
	o.blobStore = blobStore

	return nil
}

// connectRedis establishes the run-lock connection. This is optional:
// failure logs a warning, and runs proceed with check-then-act gating
// only.
func (o *Orchestrator) connectRedis() {
	log.Printf("Connecting to redis at: %s", o.config.RedisAddr)

	locker, err := runlock.NewLocker(o.config.RedisAddr, "", 0, runlock.DefaultTTL)
	if err != nil {
		log.Printf("Warning: failed to connect to redis: %v", err)
		log.Printf("Runs will proceed without duplicate-run protection")
		return
	}

	o.runLocker = locker
	log.Printf("Connected to redis run-lock store")
}

// connectNATS establishes the event bus connection. This is optional:
// failure logs a warning, and run lifecycle events are skipped.
func (o *Orchestrator) connectNATS() {
	log.Printf("Connecting to NATS at: %s", o.config.NatsURL)

	natsPublisher, err := eventbus.NewPublisher(o.config.NatsURL)
	if err != nil {
		log.Printf("Warning: failed to connect to NATS: %v", err)
		log.Printf("Run lifecycle events will not be published")
		return
	}

	o.natsPublisher = natsPublisher
	log.Printf("Connected to NATS publisher")
}

// buildPipeline assembles the classifier, dispatcher, publisher, and
// pipeline, then the run tracker and HTTP API on top of them.
func (o *Orchestrator) buildPipeline() {
	log.Printf("Initializing ticket pipeline...")

	jiraClient := jira.NewClient(
		o.config.JiraBaseURL,
		o.config.JiraEmail,
		o.config.JiraAPIKey,
		o.config.JiraProjectKey,
		time.Duration(o.config.JiraTimeoutSeconds)*time.Second,
	)

	agent := classifier.NewAgentClient(
		o.config.ClassifierURL,
		time.Duration(o.config.ClassifierTimeoutSeconds)*time.Second,
	)

	pipe := pipeline.New(
		dispatcher.New(agent, o.config.ClassifierBatchSize),
		publisher.New(jiraClient, o.config.JiraDomainLabel, o.config.JiraAssigneeID),
		o.blobStore,
		o.natsPublisher,
	)

	// A nil locker interface value must stay nil, not a typed nil.
	var locker runtracker.Locker
	if o.runLocker != nil {
		locker = o.runLocker
	}

	o.tracker = runtracker.New(o.runStore, o.blobStore, locker, pipe)
	o.httpServer = httpapi.NewServer(o.tracker)

	log.Printf("Ticket pipeline initialized (batch size: %d)", o.config.ClassifierBatchSize)
}

// Run starts the HTTP server and blocks until the context is cancelled
// or the server fails.
func (o *Orchestrator) Run(ctx context.Context) error {
	log.Printf("Starting servers...")

	httpErrChan := make(chan error, 1)
	go func() {
		addr := ":" + o.config.HTTPPort
		if err := o.httpServer.Start(addr); err != nil {
			httpErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	log.Printf("Ticketsmith ready - ticket generation API on port %s", o.config.HTTPPort)

	select {
	case <-ctx.Done():
		log.Printf("Shutdown signal received")
		return ctx.Err()
	case err := <-httpErrChan:
		return err
	}
}

// Stop gracefully closes all connections and releases resources.
// This method should be called during application shutdown.
func (o *Orchestrator) Stop() error {
	log.Printf("Stopping Orchestrator...")

	// Stop HTTP server gracefully
	if o.httpServer != nil {
		if err := o.httpServer.Stop(); err != nil {
			log.Printf("Error stopping HTTP server: %v", err)
		}
	}

	// Close NATS publisher
	if o.natsPublisher != nil {
		o.natsPublisher.Close()
	}

	// Close redis run-lock store
	if o.runLocker != nil {
		if err := o.runLocker.Close(); err != nil {
			log.Printf("Error closing redis connection: %v", err)
		}
	}

	// Close blob store
	if o.blobStore != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.blobStore.Close(ctx); err != nil {
			log.Printf("Error closing blob store: %v", err)
		}
	}

	// Close tracking store
	if o.runStore != nil {
		o.runStore.Close()
	}

	log.Printf("Orchestrator stopped successfully")
	return nil
}
