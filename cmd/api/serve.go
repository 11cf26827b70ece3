package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trivial-go/configs"
	v1 "trivial-go/internal/api/v1"
	"trivial-go/internal/config"
	"trivial-go/internal/middleware"
	"trivial-go/internal/repository"
	myws "trivial-go/internal/websocket"
	"trivial-go/pkg/database"
	"trivial-go/pkg/logger"
	"trivial-go/pkg/mailer"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API and chat server",
	RunE: func(cmd *cobra.Command, args []string) error {
		// Inisialisasi logger
		logger.InitLoggers()
		defer logger.SyncLoggers()
		logger.SystemLogger.Info("Starting application", zap.String("time", time.Now().Format(time.RFC3339)))

		// Load config
		cfg := configs.LoadConfig()
		config.SecretKey = []byte(cfg.JWTSecret)
		config.Mailer = mailer.New(cfg)

		// Inisialisasi database
		config.DB = database.ConnectDB(cfg)
		defer config.DB.Close()
		logger.SystemLogger.Info("Database Connected")

		// Buat tabel jika belum ada
		repository.CreateTableIfNotExists(config.DB)

		// Inisialisasi Redis
		config.RedisClient = database.ConnectRedis(cfg)
		defer config.RedisClient.Close()

		app := fiber.New()

		// Middleware
		app.Use(middleware.ErrorHandler())
		app.Use(cors.New(cors.Config{
			AllowOrigins:     "*",
			AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
			AllowCredentials: false,
		}))
		app.Use(limiter.New(limiter.Config{
			Max:        100,
			Expiration: 1 * time.Minute,
		}))

		// Hub chat: satu goroutine yang mengelola room dan fan-out
		hub := myws.NewHub(config.RedisClient)
		go hub.Run()

		// Daftarkan semua route termasuk WebSocket
		v1.RegisterRoutes(app, hub)

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		go func() {
			addr := fmt.Sprintf(":%d", cfg.AppPort)
			logger.SystemLogger.Info("Application ready", zap.String("addr", addr))
			if err := app.Listen(addr); err != nil {
				logger.ErrorLogger.Error("Application failed to start", zap.Error(err))
				stop()
			}
		}()

		<-ctx.Done()
		logger.SystemLogger.Info("Shutting down")
		return app.ShutdownWithTimeout(10 * time.Second)
	},
}
