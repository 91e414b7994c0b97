package main

import (
	"context"
	"os"

	"rental-inventory/config"
	"rental-inventory/internal/migrate"
	"rental-inventory/pkg/database"
	"rental-inventory/pkg/logger"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	isDev := os.Getenv("ENV") == "development"
	if err := logger.Init(isDev); err != nil {
		panic(err)
	}
	defer logger.Sync()

	log := logger.L()

	cfg := config.Load(log)

	db := database.ConnectDBForMigration(&cfg.DB, log)
	defer database.CloseDB(db, log)

	if err := migrate.MigrateLedgerDB(context.Background(), db, log, migrate.DefaultMigrateOptions()); err != nil {
		log.Fatal("Migration failed", zap.Error(err))
	}

	log.Info("Migration completed")
}
