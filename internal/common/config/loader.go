package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DefaultMigrationPattern = "**/db/migration/*.sql"
	DefaultHistoryTable     = "flyway_schema_history"
	DefaultPredictionIndex  = "invoice-anomaly-predictions"
)

// Load reads configs/config.yaml (optional), merges config.<APP_ENVIRONMENT>.yaml
// when present and applies environment overrides such as SERVER_ADDRESS.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig()

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
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

	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "billing-tools")
	v.SetDefault("app.version", "dev")
	v.SetDefault("app.environment", "development")

	v.SetDefault("server.address", "0.0.0.0:8000")
	v.SetDefault("server.read_timeout", 10000)
	v.SetDefault("server.write_timeout", 10000)
	v.SetDefault("server.shutdown_timeout", 30000)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("migrations.root", ".")
	v.SetDefault("migrations.pattern", DefaultMigrationPattern)
	v.SetDefault("migrations.checksum_tool", "checksum-tool")
	v.SetDefault("migrations.history_table", DefaultHistoryTable)
	v.SetDefault("migrations.query_timeout", 10000)

	v.SetDefault("anomaly.redis.enabled", false)
	v.SetDefault("anomaly.elasticsearch.enabled", false)
	v.SetDefault("anomaly.elasticsearch.index", DefaultPredictionIndex)
	v.SetDefault("anomaly.client.enabled", false)
	v.SetDefault("anomaly.client.base_url", "http://localhost:8000")
	v.SetDefault("anomaly.client.timeout", 5000)
	v.SetDefault("anomaly.side_effect_timeout", 3000)

	v.SetDefault("alerts.sns.enabled", false)
	v.SetDefault("alerts.sns.topic_arn", "")
	v.SetDefault("alerts.ses.enabled", false)
	v.SetDefault("alerts.ses.from_email", "")
	v.SetDefault("alerts.ses.recipients", []string{})
	v.SetDefault("aws.region", "")

	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.database", "")
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.max_connections", 5)
	v.SetDefault("database.postgres.max_idle", 2)
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.elasticsearch.addresses", []string{})
	v.SetDefault("database.elasticsearch.username", "")
	v.SetDefault("database.elasticsearch.password", "")
	v.SetDefault("database.redis.address", "")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)

	v.SetDefault("camunda.enabled", false)
	v.SetDefault("camunda.broker_address", "")
	v.SetDefault("camunda.max_jobs_active", 5)
	v.SetDefault("camunda.timeout", 30000)
}

// loadEnvFile loads the first .env found walking up to the module root.
// It never prints: checksum-tool owns stdout.
func loadEnvFile() string {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return path
			}
		}
	}
	return ""
}

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
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			if expanded := os.ExpandEnv(strVal); expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

func overrideEmptyConfig(cfg *Config) {
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
	if cfg.AWS.Region == "" {
		if val := os.Getenv("AWS_REGION"); val != "" {
			cfg.AWS.Region = val
		}
	}
}

// validateConfig only checks integrations that are switched on.
func validateConfig(cfg *Config) error {
	if cfg.Anomaly.Redis.Enabled && cfg.Database.Redis.Address == "" {
		return fmt.Errorf("database.redis.address is required when anomaly.redis.enabled")
	}
	if cfg.Anomaly.Elasticsearch.Enabled && len(cfg.Database.Elasticsearch.Addresses) == 0 {
		return fmt.Errorf("database.elasticsearch.addresses is required when anomaly.elasticsearch.enabled")
	}
	if cfg.Anomaly.Client.Enabled && cfg.Anomaly.Client.BaseURL == "" {
		return fmt.Errorf("anomaly.client.base_url is required when anomaly.client.enabled")
	}
	if cfg.Alerts.SNS.Enabled {
		if cfg.Alerts.SNS.TopicARN == "" {
			return fmt.Errorf("alerts.sns.topic_arn is required when alerts.sns.enabled")
		}
		if cfg.AWS.Region == "" {
			return fmt.Errorf("aws.region is required when alerts.sns.enabled")
		}
	}
	if cfg.Alerts.SES.Enabled {
		if cfg.Alerts.SES.FromEmail == "" || len(cfg.Alerts.SES.Recipients) == 0 {
			return fmt.Errorf("alerts.ses.from_email and alerts.ses.recipients are required when alerts.ses.enabled")
		}
		if cfg.AWS.Region == "" {
			return fmt.Errorf("aws.region is required when alerts.ses.enabled")
		}
	}
	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda.enabled")
	}
	if cfg.Migrations.Pattern == "" {
		return fmt.Errorf("migrations.pattern must not be empty")
	}
	return nil
}

// ValidatePostgres checks the settings needed to open the migration history database.
func ValidatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}
	return nil
}
