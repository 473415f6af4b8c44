package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"campusprint/internal/api"
	"campusprint/internal/auth"
	"campusprint/internal/config"
	"campusprint/internal/database"
	"campusprint/internal/storage"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	logger.Info("api bootstrapping",
		slog.String("db_host", cfg.Database.Host),
		slog.Int("db_port", cfg.Database.Port),
		slog.String("db_name", cfg.Database.Name),
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		logger.Error("init database", slog.Any("error", err))
		os.Exit(1)
	}

	if err := database.Migrate(db); err != nil {
		logger.Error("migrate database", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrated")

	privateKeyPEM, err := os.ReadFile(cfg.Auth.PrivateKeyPath)
	if err != nil {
		logger.Error("read jwt private key", slog.Any("error", err))
		os.Exit(1)
	}
	publicKeyPEM, err := os.ReadFile(cfg.Auth.PublicKeyPath)
	if err != nil {
		logger.Error("read jwt public key", slog.Any("error", err))
		os.Exit(1)
	}

	authService, err := auth.NewAuthService(privateKeyPEM, publicKeyPEM, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	if err != nil {
		logger.Error("init auth service", slog.Any("error", err))
		os.Exit(1)
	}

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		logger.Error("init storage client", slog.Any("error", err))
		os.Exit(1)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, db, authService, redisClient, logger, storageClient, cfg)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	logger.Info("api listening", slog.String("address", address))

	if err := router.Run(address); err != nil {
		logger.Error("api server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}
