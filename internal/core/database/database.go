package database

import (
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
	"well_bbs/internal/core/config"
	"well_bbs/internal/core/logger"
)

var db *sqlx.DB

// Init Initialize database connection
func Init(cfg *config.DatabaseConfig) error {
	var err error

	db, err = Open(cfg)
	if err != nil {
		logger.Error("failed to connect database", logger.String("error", err.Error()))
		return err
	}

	if cfg.AutoMigrate {
		if err := Migrate(db, cfg.Driver); err != nil {
			logger.Error("failed to migrate database", logger.String("error", err.Error()))
			return err
		}
	}

	logger.Info("database initialized successfully",
		logger.String("driver", cfg.Driver),
		logger.String("host", cfg.Host),
		logger.Int("port", cfg.Port),
		logger.String("database", cfg.Name))

	return nil
}

// Open Open a connection pool for the configured driver
func Open(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	conn, err := sqlx.Connect(cfg.Driver, cfg.GetDSN())
	if err != nil {
		return nil, err
	}

	// sqlite 只允许单写连接
	if cfg.Driver == "sqlite" {
		conn.SetMaxOpenConns(1)
		return conn, nil
	}

	// Configure connection pool
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)
	return conn, nil
}

// Get Get database instance
func Get() *sqlx.DB {
	return db
}

// Close Close database connection
func Close() error {
	if db != nil {
		return db.Close()
	}
	return nil
}

// Ping Check database connection
func Ping() error {
	if db == nil {
		return nil
	}
	return db.Ping()
}
