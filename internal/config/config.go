// Package config loads and validates Download Controller configuration from
// environment variables (and an optional .env file), the same way the
// teacher's internal/config package does: viper defaults, explicit env
// bindings, a struct tagged with mapstructure, and a validation pass that
// returns a typed ConfigError.
package config

import (
	"log"
	"os"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// drsServerURIPattern enforces spec.md's invariant: drs_server_uri must
// start with "drs://" and end with "/".
var drsServerURIPattern = regexp.MustCompile(`^drs://.+/$`)

// Config holds all configuration for the Download Controller.
type Config struct {
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Repository     RepositoryConfig     `mapstructure:"repository"`
	EKSS           EKSSConfig           `mapstructure:"ekss"`
	Kafka          KafkaConfig          `mapstructure:"kafka"`
	Redis          RedisConfig          `mapstructure:"redis"`
	TokenAuth      TokenAuthConfig      `mapstructure:"token_auth"`
	ObjectStorages ObjectStoragesConfig `mapstructure:"object_storages"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Port               string `mapstructure:"port"`
	GinMode            string `mapstructure:"gin_mode"`
	CORSAllowedOrigins string `mapstructure:"cors_allowed_origins"`
}

// DatabaseConfig configures the Postgres connection used by the DRS object DAO.
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RepositoryConfig holds the DataRepositoryConfig parameters from spec.md §6.4.
type RepositoryConfig struct {
	OutboxBucket             string `mapstructure:"outbox_bucket"`
	DrsServerURI             string `mapstructure:"drs_server_uri"`
	RetryAccessAfterSeconds  int    `mapstructure:"retry_access_after"`
	PresignedURLExpiresAfter int    `mapstructure:"presigned_url_expires_after"`
	CacheTimeoutDays         int    `mapstructure:"cache_timeout"`
}

// EKSSConfig configures the Envelope Client.
type EKSSConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// KafkaConfig configures the event bus.
type KafkaConfig struct {
	Brokers              []string `mapstructure:"brokers"`
	FilesToRegisterTopic string   `mapstructure:"files_to_register_topic"`
	FilesToRegisterType  string   `mapstructure:"files_to_register_type"`
	FilesToDeleteTopic   string   `mapstructure:"files_to_delete_topic"`
	FilesToDeleteType    string   `mapstructure:"files_to_delete_type"`
	DownloadsTopic       string   `mapstructure:"downloads_topic"`
	ConsumerGroup        string   `mapstructure:"consumer_group"`
}

// RedisConfig configures the consumer dedup window and cleanup lock.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TokenAuthConfig configures work-order token validation.
type TokenAuthConfig struct {
	// SigningPubKeyPEM is the signing public key every work-order token is
	// verified against. It is loaded once at startup; a request cannot
	// supply a key of its own.
	SigningPubKeyPEM string `mapstructure:"signing_pub_key_pem"`
}

// ObjectStorageNode is the bucket/credentials pair for one named S3 endpoint.
type ObjectStorageNode struct {
	Bucket          string `mapstructure:"bucket"`
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// ObjectStoragesConfig is the alias -> node map from spec.md §6.4.
type ObjectStoragesConfig struct {
	Storages map[string]ObjectStorageNode `mapstructure:"object_storages"`
}

// LoggingConfig configures the logger prefix verbosity.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// LoadConfig loads configuration from environment variables and an optional
// .env file.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// object_storages is a nested alias->{bucket,credentials} map; that
	// shape doesn't flatten cleanly onto env vars, so it is read from an
	// optional config file while every other field can come from the
	// environment.
	viper.SetConfigName("dcs")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("/etc/dcs")
	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
		log.Println("No dcs.yaml config file found, relying on environment variables only")
	}

	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.gin_mode", "release")
	viper.SetDefault("repository.retry_access_after", 120)
	viper.SetDefault("repository.cache_timeout", 7)
	viper.SetDefault("ekss.timeout_seconds", 5)
	viper.SetDefault("kafka.files_to_register_topic", "internal_file_registry")
	viper.SetDefault("kafka.files_to_register_type", "file_internally_registered")
	viper.SetDefault("kafka.files_to_delete_topic", "file_deletions")
	viper.SetDefault("kafka.files_to_delete_type", "file_deletion_requested")
	viper.SetDefault("kafka.downloads_topic", "downloads")
	viper.SetDefault("kafka.consumer_group", "dcs")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("logging.level", "info")

	viper.SetEnvPrefix("")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindings := map[string]string{
		"server.port":                        "PORT",
		"server.gin_mode":                    "GIN_MODE",
		"server.cors_allowed_origins":        "CORS_ALLOWED_ORIGINS",
		"database.dsn":                       "DATABASE_DSN",
		"repository.outbox_bucket":           "OUTBOX_BUCKET",
		"repository.drs_server_uri":          "DRS_SERVER_URI",
		"repository.retry_access_after":      "RETRY_ACCESS_AFTER",
		"repository.presigned_url_expires_after": "PRESIGNED_URL_EXPIRES_AFTER",
		"repository.cache_timeout":           "CACHE_TIMEOUT",
		"ekss.base_url":                      "EKSS_BASE_URL",
		"ekss.timeout_seconds":               "EKSS_TIMEOUT_SECONDS",
		"kafka.brokers":                      "KAFKA_BROKERS",
		"kafka.consumer_group":               "KAFKA_CONSUMER_GROUP",
		"redis.addr":                         "REDIS_ADDR",
		"redis.password":                     "REDIS_PASSWORD",
		"redis.db":                           "REDIS_DB",
		"token_auth.signing_pub_key_pem":     "TOKEN_SIGNING_PUBKEY",
	}
	for key, env := range bindings {
		_ = viper.BindEnv(key, env)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" && len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateConfig validates that all required configuration is present and
// internally consistent, mirroring DataRepositoryConfig's field validators.
func validateConfig(cfg *Config) error {
	required := map[string]string{
		"OUTBOX_BUCKET":  cfg.Repository.OutboxBucket,
		"DRS_SERVER_URI": cfg.Repository.DrsServerURI,
		"EKSS_BASE_URL":  cfg.EKSS.BaseURL,
		"DATABASE_DSN":   cfg.Database.DSN,
	}
	for field, value := range required {
		if value == "" {
			return &ConfigError{Field: field, Msg: "required configuration field is missing"}
		}
	}

	if !drsServerURIPattern.MatchString(cfg.Repository.DrsServerURI) {
		return &ConfigError{
			Field: "DRS_SERVER_URI",
			Msg:   "has to start with 'drs://' and end with '/', got: " + cfg.Repository.DrsServerURI,
		}
	}

	if cfg.Repository.PresignedURLExpiresAfter <= 0 {
		return &ConfigError{Field: "PRESIGNED_URL_EXPIRES_AFTER", Msg: "must be a positive integer"}
	}

	if len(cfg.ObjectStorages.Storages) == 0 {
		log.Println("[Config] warning: no object_storages configured; access_drs_object will fail for any alias")
	}

	return nil
}

// GetCORSOrigins returns the allowed CORS origins, split from the
// comma-separated configuration value.
func (c *Config) GetCORSOrigins() []string {
	if c.Server.CORSAllowedOrigins == "" {
		return []string{"*"}
	}
	origins := strings.Split(c.Server.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))
	for _, origin := range origins {
		if trimmed := strings.TrimSpace(origin); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return "config error: " + e.Field + " - " + e.Msg
}
