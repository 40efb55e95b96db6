/**
 * @description
 * This package handles the configuration management for the funds-service. It
 * uses the Viper library to read configuration from environment variables and
 * an optional .env file, providing a centralized way to manage settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the funds-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	DatabaseURL          string `mapstructure:"DATABASE_URL"`
	RedisURL             string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL          string `mapstructure:"RABBITMQ_URL"`
	JWTSecret            string `mapstructure:"JWT_SECRET"`
	JWTExpiryMinutes     int    `mapstructure:"JWT_EXPIRY_MINUTES"`
	SeedDemoData         bool   `mapstructure:"SEED_DEMO_DATA"`
	DemoUserPassword     string `mapstructure:"DEMO_USER_PASSWORD"`
	SubscribeRatePerMin  int    `mapstructure:"SUBSCRIBE_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
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
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "funds:rate_limit")
	viper.SetDefault("JWT_EXPIRY_MINUTES", 60)
	viper.SetDefault("SEED_DEMO_DATA", true)
	viper.SetDefault("DEMO_USER_PASSWORD", "btgpactual2024")
	viper.SetDefault("SUBSCRIBE_RATE_LIMIT_PER_MINUTE", 30)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("JWT_EXPIRY_MINUTES")
	_ = viper.BindEnv("SEED_DEMO_DATA")
	_ = viper.BindEnv("DEMO_USER_PASSWORD")
	_ = viper.BindEnv("SUBSCRIBE_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	// PaaS platforms inject the listen port as PORT.
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "funds:rate_limit"
	}
	if config.JWTExpiryMinutes <= 0 {
		config.JWTExpiryMinutes = 60
	}
	if config.SubscribeRatePerMin < 0 {
		log.Printf("level=warn component=config msg=\"negative subscribe rate limit configured; disabling\" value=%d", config.SubscribeRatePerMin)
		config.SubscribeRatePerMin = 0
	}

	return
}
