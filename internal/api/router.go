package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/partycasino/internal/api/handler"
	"github.com/mcoot/partycasino/internal/api/middleware"
	"github.com/mcoot/partycasino/internal/events/sse"
	"github.com/mcoot/partycasino/internal/metrics"
	basemiddleware "github.com/mcoot/partycasino/internal/middleware"
	"github.com/mcoot/partycasino/internal/services/auth"
	"github.com/mcoot/partycasino/internal/services/game"
	"github.com/mcoot/partycasino/internal/services/players"
	"github.com/mcoot/partycasino/internal/services/reprocess"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger         *slog.Logger
	AuthService    *auth.Service
	PlayerService  *players.Service
	GameController *game.Controller
	ReprocessGuard *reprocess.Guard
	Hub            *sse.Hub

	// Ping checks the store for the health endpoint (optional)
	Ping handler.Pinger
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	// Create handlers
	playerHandler := handler.NewPlayerHandler(cfg.PlayerService)
	gameHandler := handler.NewGameHandler(cfg.GameController, cfg.ReprocessGuard, cfg.Logger)
	adminHandler := handler.NewAdminHandler(cfg.AuthService)
	eventsHandler := handler.NewEventsHandler(cfg.Hub)
	healthHandler := handler.NewHealthHandler(cfg.Ping)

	// Create middleware
	callerMiddleware := middleware.Caller(cfg.AuthService)
	adminMiddleware := middleware.RequireAdmin(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// /metrics sits outside the JSON API, so a panic there gets a plain text 500
	plainRecovery := basemiddleware.Recovery(cfg.Logger, basemiddleware.PlainTextPanicHandler)
	r.Handle("/metrics", plainRecovery(metrics.Handler())).Methods(http.MethodGet)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)
	api.Use(middleware.Metrics)
	api.Use(callerMiddleware)

	// Health check endpoint
	api.HandleFunc("/health", healthHandler.Check).Methods(http.MethodGet)

	// Admin session routes
	api.HandleFunc("/admin/login", adminHandler.Login).Methods(http.MethodPost)
	api.HandleFunc("/admin/logout", adminHandler.Logout).Methods(http.MethodPost)

	// Player routes
	api.HandleFunc("/players", playerHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/players", playerHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/players/leaderboard", playerHandler.Leaderboard).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}", playerHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/stats", playerHandler.Stats).Methods(http.MethodGet)
	api.HandleFunc("/players/{id}/transactions", playerHandler.Transactions).Methods(http.MethodGet)

	// Game routes; sync is registered before {ref} so it is not taken as a game id
	api.HandleFunc("/games", gameHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/games", gameHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/games/sync", gameHandler.Sync).Methods(http.MethodPost)
	api.HandleFunc("/games/{ref}", gameHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/games/{ref}/transactions", gameHandler.Transactions).Methods(http.MethodGet)
	api.HandleFunc("/games/{ref}/players", gameHandler.AddPlayer).Methods(http.MethodPost)
	api.HandleFunc("/games/{ref}/end", gameHandler.End).Methods(http.MethodPost)
	api.HandleFunc("/games/{ref}/cancel", gameHandler.Cancel).Methods(http.MethodPost)

	// Admin only
	admin := api.PathPrefix("/games").Subrouter()
	admin.Use(adminMiddleware)
	admin.HandleFunc("/{ref}/reprocess", gameHandler.Reprocess).Methods(http.MethodPost)

	// Event stream
	api.HandleFunc("/events", eventsHandler.Stream).Methods(http.MethodGet)

	return r
}
