package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func validConfig() *Config {
	return &Config{
		HTTPPort:                 "8090",
		HealthPort:               "8091",
		DatabaseDriver:           "postgres",
		DatabaseURL:              "postgres://test@localhost/test",
		MongoURL:                 "mongodb://localhost:27017",
		MongoDatabase:            "ticketsmith",
		JiraBaseURL:              "https://example.atlassian.net",
		JiraEmail:                "bot@example.com",
		JiraAPIKey:               "token",
		JiraProjectKey:           "ENG",
		JiraDomainLabel:          "SEO",
		JiraTimeoutSeconds:       30,
		ClassifierURL:            "http://localhost:9000",
		ClassifierTimeoutSeconds: 120,
		ClassifierBatchSize:      3,
	}
}

func TestConfig_Validate_MissingFields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "missing database url",
			mutate: func(c *Config) { c.DatabaseURL = "" },
			errMsg: "DATABASE_URL",
		},
		{
			name:   "missing jira base url",
			mutate: func(c *Config) { c.JiraBaseURL = "" },
			errMsg: "JIRA_BASE_URL",
		},
		{
			name:   "missing jira credentials",
			mutate: func(c *Config) { c.JiraAPIKey = "" },
			errMsg: "JIRA_API_KEY",
		},
		{
			name:   "missing classifier url",
			mutate: func(c *Config) { c.ClassifierURL = "" },
			errMsg: "CLASSIFIER_URL",
		},
		{
			name:   "zero batch size",
			mutate: func(c *Config) { c.ClassifierBatchSize = 0 },
			errMsg: "CLASSIFIER_BATCH_SIZE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_Validate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Load_WithDefaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://test@localhost/test")
	os.Setenv("JIRA_BASE_URL", "https://example.atlassian.net")
	os.Setenv("JIRA_EMAIL", "bot@example.com")
	os.Setenv("JIRA_API_KEY", "token")
	os.Setenv("CLASSIFIER_URL", "http://localhost:9000")

	defer os.Clearenv()

	cfg, err := Load()

	assert.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "8090", cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DatabaseDriver)
	assert.Equal(t, "ENG", cfg.JiraProjectKey)
	assert.Equal(t, "SEO", cfg.JiraDomainLabel)
	assert.Equal(t, 3, cfg.ClassifierBatchSize)
	assert.Equal(t, 120, cfg.ClassifierTimeoutSeconds)
}

func TestConfig_Load_CustomBatchSize(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://test@localhost/test")
	os.Setenv("JIRA_BASE_URL", "https://example.atlassian.net")
	os.Setenv("JIRA_EMAIL", "bot@example.com")
	os.Setenv("JIRA_API_KEY", "token")
	os.Setenv("CLASSIFIER_URL", "http://localhost:9000")
	os.Setenv("CLASSIFIER_BATCH_SIZE", "5")

	defer os.Clearenv()

	cfg, err := Load()

	assert.NoError(t, err)
	assert.Equal(t, 5, cfg.ClassifierBatchSize)
}
