// internal/common/config/loader_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Default Tests
// ==========================

func TestApplyDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, "consumer-manager", cfg.App.Name)
	assert.Equal(t, ":9090", cfg.App.MetricsAddr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "agrisure-workers", cfg.Kafka.GroupID)
	assert.Equal(t, 500, cfg.Kafka.RetryBackoff)
	assert.Equal(t, "workflow-status-history", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, 5000, cfg.Collaborators.Timeout)
}

func TestApplyDefaults_SeedsKnownConsumers(t *testing.T) {
	cfg := &Config{}
	applyDefaults(cfg)

	for _, name := range []string{"intake", "workflow", "lifecycle", "insurance", "verification", "document"} {
		cc, ok := cfg.Consumers[name]
		require.True(t, ok, name)
		assert.True(t, cc.Enabled, name)
		assert.Equal(t, 3, cc.MaxRetries, name)
		assert.Equal(t, 10000, cc.Timeout, name)
	}
}

func TestApplyDefaults_KeepsExplicitConsumerSettings(t *testing.T) {
	cfg := &Config{
		Consumers: map[string]ConsumerConfig{
			"insurance": {Enabled: false},
			"workflow":  {Enabled: true, MaxRetries: 7},
		},
	}
	applyDefaults(cfg)

	assert.False(t, cfg.Consumers["insurance"].Enabled)
	assert.Equal(t, 7, cfg.Consumers["workflow"].MaxRetries)
	assert.True(t, cfg.Consumers["document"].Enabled)
}

// ==========================
// Validation Tests
// ==========================

func TestValidateConfig(t *testing.T) {
	valid := &Config{}
	applyDefaults(valid)
	valid.Database.Postgres.Database = "agrisure"
	valid.Collaborators.ApplicationsBaseURL = "http://localhost:8081"
	assert.NoError(t, validateConfig(valid))

	missingDB := &Config{}
	applyDefaults(missingDB)
	missingDB.Collaborators.ApplicationsBaseURL = "http://localhost:8081"
	assert.Error(t, validateConfig(missingDB))

	missingCollab := &Config{}
	applyDefaults(missingCollab)
	missingCollab.Database.Postgres.Database = "agrisure"
	assert.Error(t, validateConfig(missingCollab))
}
