/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables (plus an
 * optional .env file), providing a centralized way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log/slog"
	"os"
	"strings"

	"github.com/paysentry/fraud-service/internal/domain"
	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the fraud-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort            string `mapstructure:"SERVER_PORT"`
	DatabaseURL           string `mapstructure:"DATABASE_URL"`
	RabbitMQURL           string `mapstructure:"RABBITMQ_URL"`
	TransactionExchange   string `mapstructure:"TRANSACTION_EXCHANGE"`
	TransactionQueue      string `mapstructure:"TRANSACTION_QUEUE"`
	TransactionRoutingKey string `mapstructure:"TRANSACTION_ROUTING_KEY"`
	SweepSchedule         string `mapstructure:"SWEEP_SCHEDULE"`
	SweepWindowSeconds    int    `mapstructure:"SWEEP_WINDOW_SECONDS"`
	HighValueThreshold    string `mapstructure:"HIGH_VALUE_THRESHOLD"`
	ModelPath             string `mapstructure:"MODEL_PATH"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix  string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	IngestRateLimitPerMin int    `mapstructure:"INGEST_RATE_LIMIT_PER_MINUTE"`

	// HighValueThresholdMinor is derived from HighValueThreshold at load time.
	HighValueThresholdMinor int64 `mapstructure:"-"`
}

// LoadConfig reads configuration from environment variables from the given
// path. It uses Viper to automatically bind environment variables to the
// Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("TRANSACTION_EXCHANGE", "paysentry.events")
	viper.SetDefault("TRANSACTION_QUEUE", "fraud_service.transactions")
	viper.SetDefault("TRANSACTION_ROUTING_KEY", "transaction.submitted")
	viper.SetDefault("SWEEP_SCHEDULE", "@every 5s")
	viper.SetDefault("SWEEP_WINDOW_SECONDS", 10)
	viper.SetDefault("HIGH_VALUE_THRESHOLD", "10000")
	viper.SetDefault("MODEL_PATH", "fraud_model.json")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "paysentry:rate_limit")
	viper.SetDefault("INGEST_RATE_LIMIT_PER_MINUTE", 0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("TRANSACTION_EXCHANGE")
	_ = viper.BindEnv("TRANSACTION_QUEUE")
	_ = viper.BindEnv("TRANSACTION_ROUTING_KEY")
	_ = viper.BindEnv("SWEEP_SCHEDULE")
	_ = viper.BindEnv("SWEEP_WINDOW_SECONDS")
	_ = viper.BindEnv("HIGH_VALUE_THRESHOLD")
	_ = viper.BindEnv("MODEL_PATH")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("INGEST_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read config file; using environment values", "error", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	// The threshold is configured in whole currency units; convert it to minor
	// units once so the hot paths compare integers.
	thresholdMinor, parseErr := domain.ParseAmountMinor(config.HighValueThreshold)
	if parseErr != nil {
		slog.Warn("invalid HIGH_VALUE_THRESHOLD; falling back to default", "value", config.HighValueThreshold, "error", parseErr)
		thresholdMinor = 10000 * 100
	}
	config.HighValueThresholdMinor = thresholdMinor

	if config.SweepWindowSeconds <= 0 {
		config.SweepWindowSeconds = 10
	}
	if strings.TrimSpace(config.SweepSchedule) == "" {
		config.SweepSchedule = "@every 5s"
	}
	if config.IngestRateLimitPerMin < 0 {
		config.IngestRateLimitPerMin = 0
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "paysentry:rate_limit"
	}

	return
}
