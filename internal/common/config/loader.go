// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	// Base config
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath("../../configs")
	viper.AddConfigPath(".")

	// Enable ENV override like KAFKA_GROUP_ID
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	// Environment-specific overlay, ignored if absent
	viper.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = viper.MergeInConfig()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadEnvFile tries .env from the working directory upward, then next to go.mod.
func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up directories looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "consumer-manager"
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = "development"
	}
	if cfg.App.MetricsAddr == "" {
		cfg.App.MetricsAddr = ":9090"
	}

	if len(cfg.Kafka.Brokers) == 0 {
		if env := os.Getenv("KAFKA_BROKERS"); env != "" {
			cfg.Kafka.Brokers = strings.Split(env, ",")
		} else {
			cfg.Kafka.Brokers = []string{"localhost:9092"}
		}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "agrisure-workers"
	}
	if cfg.Kafka.MinBytes == 0 {
		cfg.Kafka.MinBytes = 1e3
	}
	if cfg.Kafka.MaxBytes == 0 {
		cfg.Kafka.MaxBytes = 10e6
	}
	if cfg.Kafka.RetryBackoff == 0 {
		cfg.Kafka.RetryBackoff = 500
	}
	if cfg.Kafka.CommitTimeout == 0 {
		cfg.Kafka.CommitTimeout = 5000
	}

	if cfg.Database.Postgres.Host == "" {
		cfg.Database.Postgres.Host = "localhost"
	}
	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Database.Redis.Address == "" {
		cfg.Database.Redis.Address = "localhost:6379"
	}
	if len(cfg.Database.Elasticsearch.Addresses) == 0 {
		cfg.Database.Elasticsearch.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.Database.Elasticsearch.Index == "" {
		cfg.Database.Elasticsearch.Index = "workflow-status-history"
	}

	if cfg.Collaborators.Timeout == 0 {
		cfg.Collaborators.Timeout = 5000
	}
	if cfg.Collaborators.CacheTTL == 0 {
		cfg.Collaborators.CacheTTL = 300
	}

	if cfg.Consumers == nil {
		cfg.Consumers = map[string]ConsumerConfig{}
	}
	// Known consumers run unless the config explicitly lists them.
	for _, name := range []string{"intake", "workflow", "lifecycle", "insurance", "verification", "document"} {
		if _, ok := cfg.Consumers[name]; !ok {
			cfg.Consumers[name] = ConsumerConfig{Enabled: true}
		}
	}
	for name, cc := range cfg.Consumers {
		if cc.MaxRetries == 0 {
			cc.MaxRetries = 3
		}
		if cc.Timeout == 0 {
			cc.Timeout = 10000
		}
		cfg.Consumers[name] = cc
	}
}

func validateConfig(cfg *Config) error {
	if len(cfg.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must not be empty")
	}
	if cfg.Kafka.GroupID == "" {
		return fmt.Errorf("kafka.group_id must not be empty")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database must not be empty")
	}
	if cfg.Collaborators.ApplicationsBaseURL == "" {
		return fmt.Errorf("collaborators.applications_base_url must not be empty")
	}
	return nil
}
