package database

import (
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"fuzzgate/config"
)

// NewDBConnection opens the crash-record database. Persistence is optional:
// without DATABASE_URL the gate runs log-only and this returns nil.
func NewDBConnection(appConfig *config.AppConfig, logger *zap.Logger) *gorm.DB {
	if appConfig.DatabaseURL == "" {
		logger.Info("DATABASE_URL not set, crash records will not be persisted")
		return nil
	}

	db, err := gorm.Open(postgres.Open(appConfig.DatabaseURL), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect database", zap.Error(err))
	}
	logger.Debug("connected to database")
	return db
}
