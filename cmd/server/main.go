package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/phurits/brewpress/internal/auth"
	"github.com/phurits/brewpress/internal/db"
	routes "github.com/phurits/brewpress/internal/http"
	"github.com/phurits/brewpress/internal/models"
	"github.com/phurits/brewpress/internal/ws"
)

func main() {
	// Load .env first; in production the vars are set directly and the file
	// is absent, which is fine.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	// 1. Initialize Database
	database, err := db.Init()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// 2. Run Migrations
	log.Println("Running database migrations...")
	if err := database.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Post{},
		&models.Like{},
		&models.Comment{},
		&models.Notification{},
	); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Migrations complete.")

	// 3. Token signer. Fail fast on a missing secret; every protected route
	// depends on it.
	ttl := 24 * time.Hour
	if raw := os.Getenv("TOKEN_TTL"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			log.Fatalf("Invalid TOKEN_TTL %q: %v", raw, err)
		}
		ttl = parsed
	}
	tokens, err := auth.NewTokens(os.Getenv("JWT_SECRET"), ttl, "")
	if err != nil {
		log.Fatalf("Failed to configure tokens: %v", err)
	}

	// 4. Initialize WebSocket Hub
	hub := ws.NewHub()
	go hub.Run()

	// 5. Initialize Gin Router and routes
	router := gin.New()
	routes.SetupRoutes(router, database, tokens, hub)

	// 6. Start Server with Graceful Shutdown
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Server listening on :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
