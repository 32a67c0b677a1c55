package config

import (
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the ticket generation service.
type Config struct {
	// Service addresses
	HTTPPort   string
	HealthPort string

	// Tracking store (audit metadata + run records)
	DatabaseDriver string
	DatabaseURL    string

	// Blob storage for raw audits and run artifacts
	MongoURL      string
	MongoDatabase string

	// Optional collaborators
	RedisAddr string
	NatsURL   string

	// Jira
	JiraBaseURL        string
	JiraEmail          string
	JiraAPIKey         string
	JiraProjectKey     string
	JiraAssigneeID     string
	JiraDomainLabel    string
	JiraTimeoutSeconds int

	// Classifier agent
	ClassifierURL            string
	ClassifierTimeoutSeconds int
	ClassifierBatchSize      int
}

// Load reads configuration from environment variables and .env file.
func Load() (*Config, error) {
	// Try multiple .env locations
	envPaths := []string{
		".env",
		"../.env",
		"/app/.env", // Docker
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("Loaded config from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Printf("No .env file found, using environment variables")
	}

	config := &Config{
		// Service addresses with defaults
		HTTPPort:   getEnvOrDefault("HTTP_PORT", "8090"),
		HealthPort: getEnvOrDefault("HEALTH_PORT", "8091"),

		// Tracking store
		DatabaseDriver: getEnvOrDefault("DATABASE_DRIVER", "postgres"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),

		// Blob storage
		MongoURL:      getEnvOrDefault("MONGO_URL", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "ticketsmith"),

		// Optional collaborators
		RedisAddr: getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		NatsURL:   getEnvOrDefault("NATS_URL", "nats://localhost:4222"),

		// Jira
		JiraBaseURL:        os.Getenv("JIRA_BASE_URL"),
		JiraEmail:          os.Getenv("JIRA_EMAIL"),
		JiraAPIKey:         os.Getenv("JIRA_API_KEY"),
		JiraProjectKey:     getEnvOrDefault("JIRA_PROJECT_KEY", "ENG"),
		JiraAssigneeID:     os.Getenv("JIRA_ASSIGNEE_ID"),
		JiraDomainLabel:    getEnvOrDefault("JIRA_DOMAIN_LABEL", "SEO"),
		JiraTimeoutSeconds: parseIntOrDefault("JIRA_TIMEOUT_SECONDS", 30),

		// Classifier agent
		ClassifierURL:            os.Getenv("CLASSIFIER_URL"),
		ClassifierTimeoutSeconds: parseIntOrDefault("CLASSIFIER_TIMEOUT_SECONDS", 120),
		ClassifierBatchSize:      parseIntOrDefault("CLASSIFIER_BATCH_SIZE", 3),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.HTTPPort == "" {
		return fmt.Errorf("HTTP_PORT is required")
	}

	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.MongoURL == "" {
		return fmt.Errorf("MONGO_URL is required")
	}

	if c.JiraBaseURL == "" {
		return fmt.Errorf("JIRA_BASE_URL is required")
	}

	if c.JiraEmail == "" || c.JiraAPIKey == "" {
		return fmt.Errorf("JIRA_EMAIL and JIRA_API_KEY are required")
	}

	if c.ClassifierURL == "" {
		return fmt.Errorf("CLASSIFIER_URL is required")
	}

	if c.ClassifierBatchSize < 1 {
		return fmt.Errorf("CLASSIFIER_BATCH_SIZE must be at least 1")
	}

	if c.JiraTimeoutSeconds < 1 {
		return fmt.Errorf("JIRA_TIMEOUT_SECONDS must be at least 1")
	}

	if c.ClassifierTimeoutSeconds < 1 {
		return fmt.Errorf("CLASSIFIER_TIMEOUT_SECONDS must be at least 1")
	}

	return nil
}

// Helper functions
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
