package config

import "time"

// Config holds all configuration for the application
type Config struct {
	Environment string         `mapstructure:"environment"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Logger      LoggerConfig   `mapstructure:"logger"`
	Provider    ProviderConfig `mapstructure:"provider"`
	Webhook     WebhookConfig  `mapstructure:"webhook"`
	Poller      PollerConfig   `mapstructure:"poller"`
	Sweeper     SweeperConfig  `mapstructure:"sweeper"`
	Notifier    NotifierConfig `mapstructure:"notifier"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	ReadTimeout       time.Duration `mapstructure:"readTimeout"`       // seconds
	WriteTimeout      time.Duration `mapstructure:"writeTimeout"`      // seconds
	IdleTimeout       time.Duration `mapstructure:"idleTimeout"`       // seconds
	ReadHeaderTimeout time.Duration `mapstructure:"readHeaderTimeout"` // seconds
	ShutdownTimeout   time.Duration `mapstructure:"shutdownTimeout"`   // seconds
}

// DatabaseConfig contains database connection settings
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"sslMode"`
	MaxOpenConns    int           `mapstructure:"maxOpenConns"`
	MaxIdleConns    int           `mapstructure:"maxIdleConns"`
	ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"` // minutes
	ConnMaxIdleTime time.Duration `mapstructure:"connMaxIdleTime"` // minutes
	RetryAttempts   int           `mapstructure:"retryAttempts"`
	RetryDelay      time.Duration `mapstructure:"retryDelay"` // seconds
}

// LoggerConfig contains logger settings
type LoggerConfig struct {
	Level string `mapstructure:"level"`
}

// ProviderConfig contains payment provider client settings
type ProviderConfig struct {
	BaseURL     string        `mapstructure:"baseUrl"`
	APIKey      string        `mapstructure:"apiKey"`
	ChannelID   string        `mapstructure:"channelId"`
	Timeout     time.Duration `mapstructure:"timeout"` // seconds
	CallbackURL string        `mapstructure:"callbackUrl"`
}

// WebhookConfig contains inbound webhook settings
type WebhookConfig struct {
	SharedSecret        string        `mapstructure:"sharedSecret"`
	BufferRetries       int           `mapstructure:"bufferRetries"`
	BufferRetryInterval time.Duration `mapstructure:"bufferRetryInterval"` // seconds
}

// PollerConfig contains status-poll fallback settings
type PollerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`      // seconds
	BaseBackoff   time.Duration `mapstructure:"baseBackoff"`   // seconds
	MaxBackoff    time.Duration `mapstructure:"maxBackoff"`    // seconds
	FixedAttempts int           `mapstructure:"fixedAttempts"`
	MaxAttempts   int           `mapstructure:"maxAttempts"`
	Horizon       time.Duration `mapstructure:"horizon"` // minutes
	BatchSize     int           `mapstructure:"batchSize"`
	FirstPollWait time.Duration `mapstructure:"firstPollWait"` // seconds
}

// SweeperConfig contains reconciliation sweep settings
type SweeperConfig struct {
	Interval           time.Duration `mapstructure:"interval"`           // minutes
	StalenessThreshold time.Duration `mapstructure:"stalenessThreshold"` // minutes
	BatchSize          int           `mapstructure:"batchSize"`
	ForceFinalPoll     bool          `mapstructure:"forceFinalPoll"`
}

// NotifierConfig contains notification delivery settings
type NotifierConfig struct {
	TargetURL string        `mapstructure:"targetUrl"`
	Timeout   time.Duration `mapstructure:"timeout"` // seconds
}
