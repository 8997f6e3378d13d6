// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig                 `mapstructure:"app"`
	Kafka         KafkaConfig               `mapstructure:"kafka"`
	Database      DatabaseConfig            `mapstructure:"database"`
	Consumers     map[string]ConsumerConfig `mapstructure:"consumers"`
	Auth          AuthConfig                `mapstructure:"auth"`
	Collaborators CollaboratorConfig        `mapstructure:"collaborators"`
	Logging       LoggingConfig             `mapstructure:"logging"`
	Notifications NotificationConfig        `mapstructure:"notifications"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type KafkaConfig struct {
	Brokers       []string `mapstructure:"brokers"`
	GroupID       string   `mapstructure:"group_id"`
	MinBytes      int      `mapstructure:"min_bytes"`
	MaxBytes      int      `mapstructure:"max_bytes"`
	RetryBackoff  int      `mapstructure:"retry_backoff"`  // milliseconds, initial backoff before redelivery
	CommitTimeout int      `mapstructure:"commit_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ConsumerConfig holds the core settings applicable to every topic consumer.
type ConsumerConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MaxRetries int  `mapstructure:"max_retries"` // redelivery budget before dead-letter
	Timeout    int  `mapstructure:"timeout"`     // milliseconds, per-handler
}

// --- Specific Configuration Sections ---

// AuthConfig holds settings for the service-account token source.
type AuthConfig struct {
	Keycloak struct {
		URL          string `mapstructure:"url"`
		Realm        string `mapstructure:"realm"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
	} `mapstructure:"keycloak"`
}

// CollaboratorConfig holds base URLs for the read APIs of other services.
type CollaboratorConfig struct {
	ApplicationsBaseURL string `mapstructure:"applications_base_url"`
	UsersBaseURL        string `mapstructure:"users_base_url"`
	Timeout             int    `mapstructure:"timeout"`   // milliseconds
	CacheTTL            int    `mapstructure:"cache_ttl"` // seconds, Redis lookup cache
}

// NotificationConfig holds settings for terminal-status notifications.
type NotificationConfig struct {
	Email struct {
		Enabled   bool   `mapstructure:"enabled"`
		FromEmail string `mapstructure:"from_email"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled  bool   `mapstructure:"enabled"`
		SenderID string `mapstructure:"sender_id"`
	} `mapstructure:"sms"`
	AWS struct {
		Region string `mapstructure:"region"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
