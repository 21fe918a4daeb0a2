package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/safatanc/gsalt-checkout/injector"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

func main() {
	config := infrastructures.LoadConfig()

	app, err := injector.InitializeApplication()
	if err != nil {
		logrus.Fatalf("Failed to initialize application: %v", err)
	}

	// Fiber configuration
	router := fiber.New(fiber.Config{
		ReadTimeout: time.Second * 60,
		// Payment status streams stay open well past a normal request
		WriteTimeout: 0,
		IdleTimeout:  time.Second * 60,
	})

	// Add CORS middleware
	router.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset",
		MaxAge:        300,
	}))

	app.RegisterRoutes(router)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var relay sync.WaitGroup
	relay.Add(1)
	go func() {
		defer relay.Done()
		app.OutboxRelay.Run(ctx)
	}()

	go func() {
		<-ctx.Done()
		logrus.Info("Shutting down")
		if err := router.ShutdownWithTimeout(10 * time.Second); err != nil {
			logrus.WithError(err).Error("Failed to shut down server")
		}
	}()

	if err := router.Listen(":" + config.APP_PORT); err != nil {
		logrus.Fatalf("Failed to start server: %v", err)
	}

	stop()
	relay.Wait()
	if err := app.OutboxRelay.Close(); err != nil {
		logrus.WithError(err).Warn("Failed to close kafka producer")
	}
}
