package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/coder/websocket"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pressly/goose/v3"

	"loveletter-server/internal/database"
	"loveletter-server/internal/loveletter"
)

type Config struct {
	Bind          string
	Port          int
	DatabaseURL   string
	MigrationsDir string
	PublicURL     string
	TieBreak      loveletter.TieBreak
}

type Server struct {
	cfg       Config
	publicURL string

	db                database.Service
	userStore         IdentityStore
	connectionManager *ConnectionManager
	gameManager       *GameManager
	sessionManager    *SessionManager
	rateLimiter       *RateLimiter
	connectionHealth  *ConnectionHealth

	stop chan struct{}
}

func NewServer(cfg Config) (*Server, *http.Server) {
	// Initialize database
	dbService := database.New(cfg.DatabaseURL)

	// Run migrations
	if err := runMigrations(dbService.DB(), cfg.MigrationsDir); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	srv := &Server{
		cfg:               cfg,
		publicURL:         cfg.PublicURL,
		db:                dbService,
		userStore:         NewUserStore(dbService.DB()),
		connectionManager: NewConnectionManager(),
		gameManager:       NewGameManager(loveletter.Engine{TieBreak: cfg.TieBreak}),
		sessionManager:    NewSessionManager(),
		rateLimiter:       NewRateLimiter(20, time.Second),
		connectionHealth:  NewConnectionHealth(),
		stop:              make(chan struct{}),
	}

	// Start background tasks
	go srv.cleanupTask()

	// Declare Server config
	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port),
		Handler:      srv.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return srv, httpServer
}

// runMigrations applies database migrations using goose
func runMigrations(db *sql.DB, dir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set goose dialect: %w", err)
	}

	if err := goose.Up(db, dir); err != nil {
		return fmt.Errorf("failed to apply migrations: %w", err)
	}

	log.Println("Database migrations applied successfully")
	return nil
}

// cleanupTask periodically drops rate-limiter state for quiet connections
// and ages out abandoned lobbies and finished rounds.
func (s *Server) cleanupTask() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.rateLimiter.Cleanup()

			for _, connID := range s.connectionHealth.GetInactiveConnections(30 * time.Minute) {
				if conn := s.connectionManager.GetConnection(connID); conn != nil {
					log.Printf("Cleanup task: closing inactive connection %s", connID)
					conn.Close(websocket.StatusGoingAway, "Inactive")
				}
			}

			if removed := s.gameManager.RemoveStaleLobbies(24 * time.Hour); removed > 0 {
				log.Printf("Cleanup task: removed %d stale games", removed)
			}
		case <-s.stop:
			return
		}
	}
}

// Shutdown tells every connected client the server is going away, then
// releases background tasks and the database.
func (s *Server) Shutdown(ctx context.Context) error {
	close(s.stop)

	s.broadcastAll("server_shutdown", ShutdownNotification{
		Message: "Server is shutting down",
	})

	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	log.Println("Server state released")
	return nil
}
