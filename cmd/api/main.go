package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ontyx/ontyx/internal/config"
	"github.com/ontyx/ontyx/internal/database"
	ontyxHttp "github.com/ontyx/ontyx/internal/http"
	journalHandler "github.com/ontyx/ontyx/internal/http/journal"
	quoteHandler "github.com/ontyx/ontyx/internal/http/quote"
	"github.com/ontyx/ontyx/internal/journal"
	journalStore "github.com/ontyx/ontyx/internal/journal/store"
	"github.com/ontyx/ontyx/internal/quote"
	quoteStore "github.com/ontyx/ontyx/internal/quote/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		quoteService   = quote.NewService(quoteStore.New(db))
		journalService = journal.NewService(journalStore.New(db))
	)

	var (
		quoteH   = quoteHandler.NewHandler(quoteService)
		journalH = journalHandler.NewHandler(journalService)
	)

	router := ontyxHttp.New([]byte(cfg.Auth.JWTSecret), cfg.AllowedOrigins(), quoteH, journalH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
