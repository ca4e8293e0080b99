package util

import (
	"fmt"

	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file or environment variables.
// Business tunables (timeouts, fees, rates) live in the settings table instead.
type Config struct {
	StoreDriver             string   `mapstructure:"STORE_DRIVER"`
	DatabaseURL             string   `mapstructure:"DATABASE_URL"`
	HTTPServerAddress       string   `mapstructure:"HTTP_SERVER_ADDRESS"`
	AllowedOrigins          []string `mapstructure:"ALLOWED_ORIGINS"`
	RedisServerAddress      string   `mapstructure:"REDIS_SERVER_ADDRESS"`
	Currency                string   `mapstructure:"CURRENCY"`
	FirebaseCredentialsFile string   `mapstructure:"FIREBASE_CREDENTIALS_FILE"`
	DiscordBotToken         string   `mapstructure:"DISCORD_BOT_TOKEN"`
	DiscordChannelID        string   `mapstructure:"DISCORD_CHANNEL_ID"`
	SMTPHost                string   `mapstructure:"SMTP_HOST"`
	SMTPPort                int      `mapstructure:"SMTP_PORT"`
	SMTPUsername            string   `mapstructure:"SMTP_USERNAME"`
	SMTPPassword            string   `mapstructure:"SMTP_PASSWORD"`
	OperatorEmail           string   `mapstructure:"OPERATOR_EMAIL"`
	JekoBaseURL             string   `mapstructure:"JEKO_BASE_URL"`
	JekoAPIKey              string   `mapstructure:"JEKO_API_KEY"`
	JekoAPIKeyID            string   `mapstructure:"JEKO_API_KEY_ID"`
	JekoWebhookSecret       string   `mapstructure:"JEKO_WEBHOOK_SECRET"`
	KafkaBrokers            []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic              string   `mapstructure:"KAFKA_TOPIC"`
	SchedulerEnabled        bool     `mapstructure:"SCHEDULER_ENABLED"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	// Set defaults for non-sensitive config
	viper.SetDefault("STORE_DRIVER", StoreDriverPostgres)
	viper.SetDefault("ALLOWED_ORIGINS", []string{"http://localhost:3000"})
	viper.SetDefault("HTTP_SERVER_ADDRESS", "0.0.0.0:8080")
	viper.SetDefault("CURRENCY", "XOF")
	viper.SetDefault("SMTP_PORT", 587)
	viper.SetDefault("JEKO_BASE_URL", "https://api.jeko.africa")
	viper.SetDefault("KAFKA_TOPIC", "dispatch.events")
	viper.SetDefault("SCHEDULER_ENABLED", true)

	// Prefer environment variables over config file
	viper.AutomaticEnv()

	// Load config file
	viper.SetConfigFile(path)
	if err = viper.ReadInConfig(); err != nil {
		return
	}

	// Unmarshal config into struct
	err = viper.UnmarshalExact(&config)
	if err != nil {
		return
	}

	// Validate required configuration
	err = validateConfig(config)
	return
}

func validateConfig(config Config) error {
	switch config.StoreDriver {
	case StoreDriverPostgres:
		if config.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	case StoreDriverMemory:
	default:
		return fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", StoreDriverPostgres, StoreDriverMemory, config.StoreDriver)
	}
	if config.RedisServerAddress == "" {
		return fmt.Errorf("REDIS_SERVER_ADDRESS is required")
	}
	if config.Currency == "" {
		return fmt.Errorf("CURRENCY is required")
	}
	if config.JekoWebhookSecret == "" {
		return fmt.Errorf("JEKO_WEBHOOK_SECRET is required")
	}

	return nil
}
