package database

import (
	"os"
	"path/filepath"

	"downpour/app/config"
	"downpour/app/logger"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DB is the process-wide database handle.
var DB *gorm.DB

// Init opens the sqlite database and migrates the schema.
func Init(cfg *config.Config, log *logger.Logger) error {
	dbPath := filepath.Join(cfg.Server.DataDir, "downpour.db")
	if err := ensureDir(filepath.Dir(dbPath)); err != nil {
		log.Errorf("failed to create database directory: %v", err)
		return err
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		log.Errorf("failed to open database: %v", err)
		return err
	}

	DB = db
	log.Infof("database connected: %s", dbPath)

	if err := AutoMigrate(); err != nil {
		log.Errorf("schema migration failed: %v", err)
		return err
	}

	if err := InitAdminUser(cfg, log); err != nil {
		log.Errorf("failed to bootstrap admin user: %v", err)
		return err
	}

	return nil
}

// Close closes the database connection.
func Close() error {
	if DB != nil {
		sqlDB, err := DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}

// GetDB returns the database handle.
func GetDB() *gorm.DB {
	return DB
}

func ensureDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}
