// internal/common/config/config.go
package config

import (
	"fmt"
	"time"
)

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig          `mapstructure:"app"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Notifications NotificationConfig `mapstructure:"notifications"`
	SMTP          SMTPConfig         `mapstructure:"smtp"`
	AWS           AWSConfig          `mapstructure:"aws"`
	Ledger        LedgerConfig       `mapstructure:"ledger"`
	Database      DatabaseConfig     `mapstructure:"database"`
	Cache         CacheConfig        `mapstructure:"cache"`
	HTTP          HTTPConfig         `mapstructure:"http"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Transports
const (
	TransportSMTP = "smtp"
	TransportSES  = "ses"
)

// NotificationConfig drives the dispatcher and the supply trigger policy.
type NotificationConfig struct {
	Transport          string        `mapstructure:"transport"`
	FromEmail          string        `mapstructure:"from_email"`
	MaxAttempts        int           `mapstructure:"max_attempts"`
	RetryDelay         time.Duration `mapstructure:"retry_delay"`
	LowSupplyThreshold int           `mapstructure:"low_supply_threshold"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// Address returns host:port for net/smtp.
func (s SMTPConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type AWSConfig struct {
	Region string `mapstructure:"region"`
	// SES.Endpoint overrides the service URL, e.g. for localstack.
	SES struct {
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"ses"`
}

// LedgerConfig selects the durability side-channels for dose events.
type LedgerConfig struct {
	FilePath             string `mapstructure:"file_path"`
	PostgresEnabled      bool   `mapstructure:"postgres_enabled"`
	ElasticsearchEnabled bool   `mapstructure:"elasticsearch_enabled"`
	ElasticsearchIndex   string `mapstructure:"elasticsearch_index"`
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
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// CacheConfig controls the adherence report cache in Redis.
type CacheConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	TTL     time.Duration `mapstructure:"ttl"`
}

type HTTPConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}
