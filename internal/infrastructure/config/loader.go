package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Environment constants
const (
	Development = "development"
	Production  = "production"
	Test        = "test"
)

// ConfigPaths defines the paths to look for config files
var ConfigPaths = []string{
	"./configs",
	"../configs",
	"../../configs",
}

// DotEnvPaths defines the paths to look for .env files
var DotEnvPaths = []string{
	".env",
	"./configs/.env",
	"../configs/.env",
}

// LoadConfig loads configuration from file based on the environment
func LoadConfig() (*Config, error) {
	if err := loadDotEnvFile(); err != nil {
		fmt.Println("Warning: Could not load .env file:", err)
	}

	env := getEnvironment()

	v := viper.New()
	v.SetConfigName(env)
	v.SetConfigType("yaml")
	for _, path := range ConfigPaths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	v.SetEnvPrefix("BX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	processEnvOverrides(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.Environment = env
	processDurations(&config)

	return &config, nil
}

// loadDotEnvFile attempts to load environment variables from .env files
func loadDotEnvFile() error {
	var lastError error
	for _, path := range DotEnvPaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return nil
			} else {
				lastError = err
			}
		}
	}
	if lastError != nil {
		return fmt.Errorf("could not load any .env file: %w", lastError)
	}
	return fmt.Errorf("no .env file found in search paths")
}

// setDefaults sets default values for non-critical configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.readTimeout", 15)
	v.SetDefault("server.writeTimeout", 15)
	v.SetDefault("server.idleTimeout", 60)
	v.SetDefault("server.readHeaderTimeout", 10)
	v.SetDefault("server.shutdownTimeout", 10)

	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 50)
	v.SetDefault("database.maxIdleConns", 25)
	v.SetDefault("database.connMaxLifetime", 30) // minutes
	v.SetDefault("database.connMaxIdleTime", 15) // minutes
	v.SetDefault("database.retryAttempts", 3)
	v.SetDefault("database.retryDelay", 5) // seconds

	v.SetDefault("logger.level", "info")

	v.SetDefault("provider.timeout", 10) // seconds

	v.SetDefault("webhook.bufferRetries", 3)
	v.SetDefault("webhook.bufferRetryInterval", 5) // seconds

	v.SetDefault("poller.interval", 10)    // seconds
	v.SetDefault("poller.baseBackoff", 15) // seconds
	v.SetDefault("poller.maxBackoff", 120) // seconds
	v.SetDefault("poller.fixedAttempts", 3)
	v.SetDefault("poller.maxAttempts", 10)
	v.SetDefault("poller.horizon", 30) // minutes
	v.SetDefault("poller.batchSize", 50)
	v.SetDefault("poller.firstPollWait", 20) // seconds

	v.SetDefault("sweeper.interval", 5)            // minutes
	v.SetDefault("sweeper.stalenessThreshold", 45) // minutes
	v.SetDefault("sweeper.batchSize", 100)
	v.SetDefault("sweeper.forceFinalPoll", true)

	v.SetDefault("notifier.timeout", 5) // seconds
}

// getEnvironment determines the environment based on BX_ENV
func getEnvironment() string {
	env := os.Getenv("BX_ENV")
	if env == "" {
		env = Development
	}
	return strings.ToLower(env)
}

// processEnvOverrides ensures environment variables override config values
// for sensitive settings
func processEnvOverrides(v *viper.Viper) {
	if dbHost := os.Getenv("BX_DB_HOST"); dbHost != "" {
		v.Set("database.host", dbHost)
	}
	if dbPort := os.Getenv("BX_DB_PORT"); dbPort != "" {
		v.Set("database.port", dbPort)
	}
	if dbUser := os.Getenv("BX_DB_USERNAME"); dbUser != "" {
		v.Set("database.username", dbUser)
	}
	if dbPass := os.Getenv("BX_DB_PASSWORD"); dbPass != "" {
		v.Set("database.password", dbPass)
	}
	if dbName := os.Getenv("BX_DB_NAME"); dbName != "" {
		v.Set("database.database", dbName)
	}
	if sslMode := os.Getenv("BX_DB_SSL_MODE"); sslMode != "" {
		v.Set("database.sslMode", sslMode)
	}

	if apiKey := os.Getenv("BX_PROVIDER_API_KEY"); apiKey != "" {
		v.Set("provider.apiKey", apiKey)
	}
	if baseURL := os.Getenv("BX_PROVIDER_BASE_URL"); baseURL != "" {
		v.Set("provider.baseUrl", baseURL)
	}
	if channelID := os.Getenv("BX_PROVIDER_CHANNEL_ID"); channelID != "" {
		v.Set("provider.channelId", channelID)
	}
	if callbackURL := os.Getenv("BX_PROVIDER_CALLBACK_URL"); callbackURL != "" {
		v.Set("provider.callbackUrl", callbackURL)
	}

	if secret := os.Getenv("BX_WEBHOOK_SECRET"); secret != "" {
		v.Set("webhook.sharedSecret", secret)
	}

	if target := os.Getenv("BX_NOTIFIER_TARGET_URL"); target != "" {
		v.Set("notifier.targetUrl", target)
	}

	if logLevel := os.Getenv("BX_LOGGER_LEVEL"); logLevel != "" {
		v.Set("logger.level", logLevel)
	}
	if serverPort := os.Getenv("BX_SERVER_PORT"); serverPort != "" {
		v.Set("server.port", serverPort)
	}
}

// processDurations converts duration fields from their raw values
func processDurations(config *Config) {
	config.Server.ReadTimeout = time.Duration(config.Server.ReadTimeout) * time.Second
	config.Server.WriteTimeout = time.Duration(config.Server.WriteTimeout) * time.Second
	config.Server.IdleTimeout = time.Duration(config.Server.IdleTimeout) * time.Second
	config.Server.ReadHeaderTimeout = time.Duration(config.Server.ReadHeaderTimeout) * time.Second
	config.Server.ShutdownTimeout = time.Duration(config.Server.ShutdownTimeout) * time.Second

	config.Database.ConnMaxLifetime = time.Duration(config.Database.ConnMaxLifetime) * time.Minute
	config.Database.ConnMaxIdleTime = time.Duration(config.Database.ConnMaxIdleTime) * time.Minute
	config.Database.RetryDelay = time.Duration(config.Database.RetryDelay) * time.Second

	config.Provider.Timeout = time.Duration(config.Provider.Timeout) * time.Second

	config.Webhook.BufferRetryInterval = time.Duration(config.Webhook.BufferRetryInterval) * time.Second

	config.Poller.Interval = time.Duration(config.Poller.Interval) * time.Second
	config.Poller.BaseBackoff = time.Duration(config.Poller.BaseBackoff) * time.Second
	config.Poller.MaxBackoff = time.Duration(config.Poller.MaxBackoff) * time.Second
	config.Poller.Horizon = time.Duration(config.Poller.Horizon) * time.Minute
	config.Poller.FirstPollWait = time.Duration(config.Poller.FirstPollWait) * time.Second

	config.Sweeper.Interval = time.Duration(config.Sweeper.Interval) * time.Minute
	config.Sweeper.StalenessThreshold = time.Duration(config.Sweeper.StalenessThreshold) * time.Minute

	config.Notifier.Timeout = time.Duration(config.Notifier.Timeout) * time.Second
}
