package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ralnuaimi/petty-cash-server/internal/api"
	"github.com/ralnuaimi/petty-cash-server/internal/config"
	"github.com/ralnuaimi/petty-cash-server/internal/repository"
	"github.com/ralnuaimi/petty-cash-server/internal/service"
	"github.com/ralnuaimi/petty-cash-server/internal/storage"
	"github.com/ralnuaimi/petty-cash-server/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	log := logger.Init(logger.Options{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up database")
	}
	defer db.Close()

	// Receipt upload storage
	receipts, err := storage.NewReceiptStore(cfg.Uploads.Dir)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up receipt storage")
	}

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	tokenTTL := time.Duration(cfg.Auth.TokenTTLHrs) * time.Hour
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, tokenTTL, log)

	// Create API handler
	handler := api.NewHandler(svc, receipts, log)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info().Str("addr", serverAddr).Msg("starting server")
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		log.Fatal().Err(err).Msg("failed to start server")
	}
}
