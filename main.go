package main

import (
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"etshd/backoffice/internal/api"
	"etshd/backoffice/internal/config"
	"etshd/backoffice/internal/database"
	"etshd/backoffice/internal/logger"
	"etshd/backoffice/internal/migrations"
	"etshd/backoffice/internal/seed"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	db := database.Connect(cfg.DatabaseDSN, log)
	defer db.Close()

	migrations.Run(db, log)
	seed.LoadProducts(db, cfg.SeedCSV, log)

	handler := api.New(db, cfg.Secret, log)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Infof("back-office server starting on :%s", cfg.HTTPPort)
	if err := server.ListenAndServe(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
