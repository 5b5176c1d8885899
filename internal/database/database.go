// Package database manages the run-catalog database connection. Postgres is
// preferred when configured; SQLite is the local fallback so a run is never
// lost to an unreachable server.
package database

import (
	"database/sql"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/video360/detector/internal/config"
)

// Manager handles the catalog database connection.
type Manager struct {
	DB            *gorm.DB
	SqlDB         *sql.DB
	IsValid       bool
	LocalFallback bool
	Logger        zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		IsValid: false,
		Logger:  log,
	}
}

// Connect establishes the catalog connection per the configured driver,
// falling back to SQLite if Postgres fails.
func (m *Manager) Connect(cfg config.CatalogConfig) error {
	var err error

	switch cfg.Driver {
	case "postgres":
		m.DB, err = m.GetPostgresDB(cfg)
		if err != nil {
			m.Logger.Error().Err(err).Msg("Failed to connect to Postgres catalog, trying SQLite")
			m.LocalFallback = true
			m.DB, err = m.GetSqliteDB(cfg.Path)
		}
	case "sqlite", "":
		m.DB, err = m.GetSqliteDB(cfg.Path)
	default:
		return fmt.Errorf("unknown catalog driver: %s", cfg.Driver)
	}
	if err != nil || m.DB == nil {
		m.IsValid = false
		return fmt.Errorf("failed to open catalog database: %s", err)
	}

	// test connection
	m.SqlDB, err = m.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %s", err)
	}
	if err := m.SqlDB.Ping(); err != nil {
		m.IsValid = false
		return fmt.Errorf("failed to validate catalog connection: %s", err)
	}

	m.IsValid = true
	m.Logger.Info().Msg("Connected to run catalog")
	return nil
}

// GetPostgresDB returns a connection to the Postgres catalog.
func (m *Manager) GetPostgresDB(cfg config.CatalogConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host,
		cfg.Port,
		cfg.Username,
		cfg.Password,
		cfg.Database,
	)

	m.Logger.Debug().Msgf("Connecting to Postgres catalog at '%s:%s'", cfg.Host, cfg.Port)

	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
}

// GetSqliteDB returns a connection to a SQLite catalog.
// If path is empty, uses an in-memory database.
func (m *Manager) GetSqliteDB(path string) (*gorm.DB, error) {
	dsn := "file::memory:?cache=shared"
	if path != "" {
		dsn = path
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        1000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		m.IsValid = false
		return nil, err
	}

	if path != "" {
		m.Logger.Info().Str("path", path).Msg("Using local SQLite catalog")
	} else {
		m.Logger.Info().Msg("Using in-memory SQLite catalog")
	}

	pragmas := []string{
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA temp_store = MEMORY;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %s", err)
		}
	}

	return db, nil
}

// Close releases the underlying connection.
func (m *Manager) Close() error {
	if m.SqlDB != nil {
		return m.SqlDB.Close()
	}
	return nil
}
