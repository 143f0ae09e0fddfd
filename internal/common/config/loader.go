// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "medication-alerts/internal/common/errors"
)

// Load reads configs/config.yaml (or ./config.yaml), merges
// config.<APP_ENVIRONMENT>.yaml on top, then applies env overrides.
// A missing config file is not an error: defaults plus env are enough to run.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override keys that are
// absent from the file (viper only consults env for known keys on Unmarshal).
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "medtracker")
	v.SetDefault("app.environment", "development")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")
	v.SetDefault("notifications.transport", TransportSMTP)
	v.SetDefault("notifications.from_email", "")
	v.SetDefault("notifications.max_attempts", 3)
	v.SetDefault("notifications.retry_delay", "5s")
	v.SetDefault("notifications.low_supply_threshold", 5)
	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.use_tls", true)
	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.ses.endpoint", "")
	v.SetDefault("ledger.file_path", "medication_logs.json")
	v.SetDefault("ledger.postgres_enabled", false)
	v.SetDefault("ledger.elasticsearch_enabled", false)
	v.SetDefault("ledger.elasticsearch_index", "dose-events")
	v.SetDefault("database.postgres.host", "")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.address", ":8080")
}

// Load .env from the working directory or the project root.
func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}

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

// Find project root by looking for go.mod
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

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills credentials left blank in the file from
// EMAIL_ADDRESS, EMAIL_PASSWORD, DB_USER and DB_PASSWORD.
func overrideEmptyConfig(cfg *Config) {
	if cfg.SMTP.Password == "" {
		if val := os.Getenv("EMAIL_PASSWORD"); val != "" {
			cfg.SMTP.Password = val
		}
	}
	if cfg.SMTP.Username == "" {
		if val := os.Getenv("EMAIL_ADDRESS"); val != "" {
			cfg.SMTP.Username = val
		}
	}
	if cfg.Notifications.FromEmail == "" {
		cfg.Notifications.FromEmail = cfg.SMTP.Username
	}

	if cfg.Database.Postgres.User == "" {
		if val := os.Getenv("DB_USER"); val != "" {
			cfg.Database.Postgres.User = val
		}
	}
	if cfg.Database.Postgres.Password == "" {
		if val := os.Getenv("DB_PASSWORD"); val != "" {
			cfg.Database.Postgres.Password = val
		}
	}
}

// applyDefaults covers zero values that survived unmarshalling, e.g. an
// explicit 0 in the file.
func applyDefaults(cfg *Config) {
	if cfg.Notifications.MaxAttempts <= 0 {
		cfg.Notifications.MaxAttempts = 3
	}
	if cfg.Notifications.RetryDelay <= 0 {
		cfg.Notifications.RetryDelay = 5 * time.Second
	}
	if cfg.Notifications.LowSupplyThreshold <= 0 {
		cfg.Notifications.LowSupplyThreshold = 5
	}
	if cfg.Notifications.Transport == "" {
		cfg.Notifications.Transport = TransportSMTP
	}

	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 10
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 2
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}

	if cfg.Ledger.ElasticsearchIndex == "" {
		cfg.Ledger.ElasticsearchIndex = "dose-events"
	}
	if cfg.Cache.TTL <= 0 {
		cfg.Cache.TTL = 5 * time.Minute
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}
}

// validateConfig only checks settings that are actually switched on.
func validateConfig(cfg *Config) error {
	switch cfg.Notifications.Transport {
	case TransportSMTP:
		if cfg.SMTP.Host == "" {
			return apperrors.NewConfigInvalidError("smtp.host is required")
		}
		if cfg.SMTP.Port <= 0 || cfg.SMTP.Port > 65535 {
			return apperrors.NewConfigInvalidError("smtp.port must be between 1 and 65535")
		}
	case TransportSES:
		if cfg.AWS.Region == "" {
			return apperrors.NewConfigInvalidError("aws.region is required for the ses transport")
		}
	default:
		return apperrors.NewConfigInvalidError(fmt.Sprintf("notifications.transport must be %q or %q", TransportSMTP, TransportSES))
	}

	if cfg.Ledger.PostgresEnabled {
		if cfg.Database.Postgres.Host == "" {
			return apperrors.NewConfigInvalidError("database.postgres.host is required")
		}
		if cfg.Database.Postgres.Database == "" {
			return apperrors.NewConfigInvalidError("database.postgres.database is required")
		}
		if cfg.Database.Postgres.User == "" {
			return apperrors.NewConfigInvalidError("database.postgres.user is required")
		}
	}

	if cfg.Ledger.ElasticsearchEnabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return apperrors.NewConfigInvalidError("database.elasticsearch.addresses is required")
	}

	if cfg.Cache.Enabled && cfg.Database.Redis.Address == "" {
		return apperrors.NewConfigInvalidError("database.redis.address is required when cache is enabled")
	}

	return nil
}
