package main

import (
	"log"
	"os"

	"go.uber.org/zap"

	"github.com/teamforge/mentor-platform/internal/config"
	"github.com/teamforge/mentor-platform/internal/database"
	"github.com/teamforge/mentor-platform/internal/logger"
	"github.com/teamforge/mentor-platform/internal/routes"
)

func main() {
	// Load configuration
	cfg := config.Load()

	if _, err := logger.Init(cfg.DevMode); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Log.Sync()

	logger.Log.Info("starting application", zap.String("database_type", cfg.DatabaseType))

	// Initialize database
	if err := database.Initialize(cfg); err != nil {
		logger.Log.Error("failed to initialize database, requests depending on it will fail",
			zap.Error(err))
		// Deliberately not fatal so the logs have time to flush and the
		// container stays alive long enough to inspect.
	} else {
		logger.Log.Info("database initialized")
	}

	// Create upload directory
	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		logger.Log.Warn("failed to create upload directory", zap.Error(err))
	}

	// Seed admin user
	if database.GetDB() != nil {
		if err := routes.SeedAdminUser(cfg); err != nil {
			logger.Log.Warn("failed to seed admin user", zap.Error(err))
		} else {
			logger.Log.Info("admin user ready", zap.String("email", cfg.AdminEmail))
		}
	}

	// Setup router
	router := routes.SetupRouter(cfg)

	// Start server
	addr := cfg.ServerHost + ":" + cfg.ServerPort
	logger.Log.Info("server starting", zap.String("addr", addr))

	if err := router.Run(addr); err != nil {
		logger.Log.Fatal("failed to start server", zap.Error(err))
	}
}
