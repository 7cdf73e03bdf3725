package main

import (
	"github.com/joho/godotenv"

	"github.com/Efromomr/quiz-board/config"
	"github.com/Efromomr/quiz-board/logger"
	"github.com/Efromomr/quiz-board/persistence"
	"github.com/Efromomr/quiz-board/server"
)

func main() {
	// Initialize logger
	logger.Init()
	defer logger.Sync()

	// Load .env if present, then configuration
	godotenv.Load()
	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize question repository
	db, err := openDatabase(cfg)
	if err != nil {
		logger.Log.Fatalf("Failed to open question repository: %v", err)
	}
	logger.Log.Info("Question repository ready.")

	// Seed the built-in question set on first start
	if err := db.SeedQuestions(persistence.DefaultQuestions); err != nil {
		logger.Log.Fatalf("Failed to seed questions: %v", err)
	}

	// Initialize Game Server
	gameServer := server.NewGameServer(cfg, db)

	// Start Server
	logger.Log.Infof("Starting quiz board server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}

func openDatabase(cfg *config.Config) (persistence.Database, error) {
	pg := cfg.Database.Postgres
	switch cfg.Database.Driver {
	case "postgres":
		return persistence.NewPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	case "memory":
		return persistence.NewMemory(), nil
	default:
		return persistence.NewGormPostgreSQL(pg.Host, pg.Port, pg.User, pg.Password, pg.DBName)
	}
}
