package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hugh/contact-keeper/internal/database/models"
	"github.com/hugh/contact-keeper/pkg/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg *config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(sqliteDSN(cfg.DSN()))
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := Open(dialector, logger.Default.LogMode(logger.Warn))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying db: %w", err)
	}

	// Connection pool settings
	if cfg.Driver == config.DriverSQLite {
		// SQLite allows a single writer; serialize through one connection.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
	}

	log.Info("connected to database", "driver", cfg.Driver, "database", databaseName(cfg))

	return db, nil
}

// Open applies the settings every connection needs, including duplicate-key
// translation into gorm.ErrDuplicatedKey.
func Open(dialector gorm.Dialector, gormLogger logger.Interface) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return db, nil
}

// serviceModels lists the tables the service owns, parents first.
func serviceModels() []interface{} {
	return []interface{}{&models.User{}, &models.Contact{}}
}

// Migrate creates the users and contacts tables if they are absent.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(serviceModels()...); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

// ResetSchema drops both tables and recreates them empty.
func ResetSchema(ctx context.Context, db *gorm.DB) error {
	if err := db.WithContext(ctx).Migrator().DropTable(&models.Contact{}, &models.User{}); err != nil {
		return fmt.Errorf("dropping tables: %w", err)
	}
	return Migrate(db.WithContext(ctx))
}

// MissingTables names the service tables that do not exist yet.
func MissingTables(ctx context.Context, db *gorm.DB) []string {
	m := db.WithContext(ctx).Migrator()
	var missing []string
	for _, model := range serviceModels() {
		if !m.HasTable(model) {
			missing = append(missing, model.(interface{ TableName() string }).TableName())
		}
	}
	return missing
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_foreign_keys=on"
}

func databaseName(cfg *config.DatabaseConfig) string {
	if cfg.Driver == config.DriverSQLite {
		return cfg.Path
	}
	return cfg.Name
}
