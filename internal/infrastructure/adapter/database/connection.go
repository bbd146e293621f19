package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	coreport "github.com/maryreaky/betrix-payments/internal/domain/port/core"
	"github.com/maryreaky/betrix-payments/internal/infrastructure/adapter/model"
)

// Manager owns the database connection lifecycle
type Manager struct {
	config       *Config
	logger       coreport.Logger
	timeProvider coreport.TimeProvider
	db           *gorm.DB
}

// NewManager creates a database manager
func NewManager(config *Config, logger coreport.Logger, timeProvider coreport.TimeProvider) *Manager {
	return &Manager{
		config:       config,
		logger:       logger,
		timeProvider: timeProvider,
	}
}

// Connect establishes the connection, retrying transient failures per the
// configured attempt count
func (m *Manager) Connect() (*gorm.DB, error) {
	if err := m.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLogLevel(m.config.LogLevel)),
	}

	attempts := m.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var db *gorm.DB
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		db, err = gorm.Open(postgres.Open(m.config.DSN()), gormConfig)
		if err == nil {
			break
		}
		m.logger.Warn("Database connection failed, retrying", map[string]any{
			"attempt":      attempt,
			"max_attempts": attempts,
			"error":        err.Error(),
		})
		if attempt < attempts {
			m.timeProvider.Sleep(m.config.RetryDelay)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(m.config.MaxOpenConns)
	sqlDB.SetMaxIdleConns(m.config.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(m.config.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(m.config.ConnMaxIdleTime)

	m.db = db
	m.logger.Info("Database connected", map[string]any{
		"host":     m.config.Host,
		"database": m.config.Database,
	})
	return db, nil
}

// Migrate creates or updates the schema
func (m *Manager) Migrate() error {
	if m.db == nil {
		return fmt.Errorf("database not connected")
	}
	return m.db.AutoMigrate(&model.Transaction{})
}

// DB returns the underlying connection
func (m *Manager) DB() *gorm.DB {
	return m.db
}

// Close shuts the connection pool down
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	sqlDB, err := m.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func gormLogLevel(level string) gormlogger.LogLevel {
	switch level {
	case "debug", "info":
		return gormlogger.Info
	case "warn":
		return gormlogger.Warn
	default:
		return gormlogger.Error
	}
}
