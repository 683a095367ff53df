package main

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mchen/wallet-backend/internal/api"
	"github.com/mchen/wallet-backend/internal/auth"
	"github.com/mchen/wallet-backend/internal/config"
	"github.com/mchen/wallet-backend/internal/logging"
	"github.com/mchen/wallet-backend/internal/ratelimit"
	"github.com/mchen/wallet-backend/internal/repository"
	"github.com/mchen/wallet-backend/internal/service"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	logger := logging.SetupLogging()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.WithError(err).Fatal("Failed to set up database")
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Token verifier shared by login and the auth middleware
	authenticator := auth.NewTokenAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)

	// Admission controller over the shared counter store
	limiter := ratelimit.NewLimiter(ratelimit.NewPostgresStore(db), cfg.RateLimit, logger)

	// Create service
	svc := service.NewDefaultService(repo, authenticator)

	// Create API handler
	handler := api.NewHandler(svc, authenticator, limiter, logger)

	// Set up Gin router
	router := gin.Default()

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.WithField("addr", serverAddr).Info("Starting server")
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		logger.WithError(err).Fatal("Failed to start server")
	}
}
