package mysql

import (
	"context"
	"fmt"
	"time"

	"DocuMind/internal/config"
	"DocuMind/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// NewDB opens a GORM connection to MySQL, configures the connection pool and
// migrates the schema. Callers own the returned handle and inject it where
// needed; there is no package-level instance.
func NewDB(cfg *config.MySQLConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		cfg.Username,
		cfg.Password,
		cfg.Address,
		cfg.Database,
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access the underlying SQL DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate creates or updates the relational schema.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Document{},
		&models.Chunk{},
		&models.ChatSession{},
		&models.ChatMessage{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// HealthCheck pings the database.
func HealthCheck(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access the underlying SQL DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access the underlying SQL DB: %w", err)
	}
	return sqlDB.Close()
}
