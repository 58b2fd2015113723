package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"studymap-backend/internal/config"
	"studymap-backend/internal/database"
	"studymap-backend/internal/events"
	"studymap-backend/internal/handlers"
	"studymap-backend/internal/middleware"
	"studymap-backend/internal/presence"
	"studymap-backend/internal/repository"
	"studymap-backend/internal/router"
	"studymap-backend/internal/services"
	"studymap-backend/internal/session"
	"studymap-backend/internal/websocket"
	"studymap-backend/internal/worker"
)

func main() {
	log.Println("🚀 Starting StudyMap Backend...")

	// ──── Step 1: Load Environment Variables ────
	cfg := config.Load()
	log.Println("✓ Environment variables loaded")

	// ──── Step 2: Initialize PostgreSQL Connection Pool ────
	pool, err := database.NewPostgresPool(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("✗ PostgreSQL connection failed: %v", err)
	}
	defer pool.Close()
	log.Println("✓ PostgreSQL connected")

	// ──── Step 3: Initialize Redis Clients ────
	redisClients, err := database.NewRedisClients(cfg.RedisURL)
	if err != nil {
		log.Fatalf("✗ Redis connection failed: %v", err)
	}
	defer redisClients.Close()
	log.Println("✓ Redis connected")

	// ──── Step 4: Run Database Migrations ────
	if err := database.RunMigrations(pool, "migrations"); err != nil {
		log.Fatalf("✗ Database migration failed: %v", err)
	}
	log.Println("✓ Database migrations applied")

	// ──── Initialize Repositories ────
	userRepo := repository.NewUserRepo(pool)
	sessionRepo := repository.NewSessionRepo(pool)
	spaceRepo := repository.NewSpaceRepo(pool)
	studyLogRepo := repository.NewStudyLogRepo(pool)

	// ──── Initialize Event Bus & Services ────
	bus := events.NewBus(redisClients.Queue, redisClients.PubSub)
	jwtAuth := middleware.NewJWTAuth(cfg.JWTSecret)
	authService := services.NewAuthService(userRepo, redisClients.Queue, jwtAuth)
	sessionService := session.NewService(sessionRepo, bus)
	publisher := presence.NewPublisher(redisClients.Queue, bus)
	aggregator := presence.NewAggregator(userRepo, sessionService, publisher, bus)

	// ──── Initialize Handlers ────
	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	presenceHandler := handlers.NewPresenceHandler(publisher)
	userHandler := handlers.NewUserHandler(userRepo, bus)
	spaceHandler := handlers.NewSpaceHandler(spaceRepo, userRepo)
	studyLogHandler := handlers.NewStudyLogHandler(studyLogRepo)

	// ──── Step 5: Start Study-Log Worker Pool ────
	workerPool := worker.NewPool(redisClients.Queue, studyLogRepo, cfg.WorkerCount)
	workerPool.Start()
	log.Printf("✓ Worker pool started (%d goroutines)", cfg.WorkerCount)

	// ──── Step 6: Start WebSocket Hub ────
	wsHub := websocket.NewHub(aggregator, jwtAuth)
	log.Println("✓ WebSocket hub started")

	// ──── Step 7: Start HTTP Server ────
	r := router.New(
		jwtAuth,
		authHandler,
		sessionHandler,
		presenceHandler,
		userHandler,
		spaceHandler,
		studyLogHandler,
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down...")
		workerPool.Stop()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(ctx)
	}()

	log.Printf("✓ StudyMap Backend ready on http://localhost:%s", cfg.Port)
	log.Printf("  API: http://localhost:%s/api/v1", cfg.Port)
	log.Printf("  WS:  ws://localhost:%s/api/v1/ws", cfg.Port)

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("Server error: %v", err)
	}
}
