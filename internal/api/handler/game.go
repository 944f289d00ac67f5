package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/mcoot/partycasino/internal/api/middleware"
	"github.com/mcoot/partycasino/internal/api/request"
	"github.com/mcoot/partycasino/internal/api/response"
	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/game"
	"github.com/mcoot/partycasino/internal/services/reprocess"
)

// GameHandler handles game-related endpoints
type GameHandler struct {
	controller *game.Controller
	guard      *reprocess.Guard
	logger     *slog.Logger
}

// NewGameHandler creates a new game handler
func NewGameHandler(controller *game.Controller, guard *reprocess.Guard, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		controller: controller,
		guard:      guard,
		logger:     logger,
	}
}

// Create handles POST /api/v1/games
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.controller.CreateGame(r.Context(), game.CreateGameRequest{
		Name:      req.Name,
		Type:      req.Type,
		CreatedBy: req.CreatedBy,
		Players:   request.InitialPlayers(req.Players),
	})
	if err != nil {
		h.logReconciliation(err)
		WriteError(w, err)
		return
	}
	h.logResultReconciliation(result.Results)

	response.JSON(w, http.StatusCreated, response.CreateGameResponse{
		Game:    response.GameFromModel(result.Game),
		Results: response.PlayerResultsFromModel(result.Results, describe),
	})
}

// Sync handles POST /api/v1/games/sync
func (h *GameHandler) Sync(w http.ResponseWriter, r *http.Request) {
	var req request.SyncGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.controller.SyncLocalGame(r.Context(), req.LocalGame())
	if err != nil {
		h.logReconciliation(err)
		WriteError(w, err)
		return
	}
	h.logResultReconciliation(result.Results)

	status := http.StatusCreated
	if result.AlreadySynced {
		status = http.StatusOK
	}
	response.JSON(w, status, response.CreateGameResponse{
		Game:          response.GameFromModel(result.Game),
		Results:       response.PlayerResultsFromModel(result.Results, describe),
		AlreadySynced: result.AlreadySynced,
	})
}

// List handles GET /api/v1/games?status=
func (h *GameHandler) List(w http.ResponseWriter, r *http.Request) {
	filter := model.GameFilter{Status: model.GameStatus(r.URL.Query().Get("status"))}
	if filter.Status != "" && !filter.Status.Valid() {
		WriteError(w, NewInvalidRequestError("status must be active, completed or cancelled"))
		return
	}

	games, err := h.controller.ListGames(r.Context(), filter)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GamesFromModel(games))
}

// Get handles GET /api/v1/games/{ref}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.controller.GetGame(r.Context(), ref)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(g))
}

// Transactions handles GET /api/v1/games/{ref}/transactions
func (h *GameHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	txs, err := h.controller.GameTransactions(r.Context(), ref)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.TransactionsFromModel(txs))
}

// AddPlayer handles POST /api/v1/games/{ref}/players
func (h *GameHandler) AddPlayer(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.AddPlayerRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.PlayerID == "" {
		WriteError(w, NewInvalidRequestError("player_id is required"))
		return
	}

	g, err := h.controller.AddPlayer(r.Context(), ref, model.PlayerID(req.PlayerID), req.Bet)
	if err != nil {
		h.logReconciliation(err)
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(g))
}

// End handles POST /api/v1/games/{ref}/end
func (h *GameHandler) End(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	var req request.EndGameRequest
	if err := decodeBody(r, &req); err != nil {
		WriteError(w, err)
		return
	}
	if req.WinnerID == "" {
		WriteError(w, NewInvalidRequestError("winner_id is required"))
		return
	}

	g, err := h.controller.EndGame(r.Context(), ref, model.PlayerID(req.WinnerID))
	if err != nil {
		h.logReconciliation(err)
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(g))
}

// Cancel handles POST /api/v1/games/{ref}/cancel
func (h *GameHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	g, err := h.controller.CancelGame(r.Context(), ref)
	if err != nil {
		h.logReconciliation(err)
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.GameFromModel(g))
}

// Reprocess handles POST /api/v1/games/{ref}/reprocess
func (h *GameHandler) Reprocess(w http.ResponseWriter, r *http.Request) {
	ref, err := gameRef(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	result, err := h.guard.Reprocess(r.Context(), middleware.GetCaller(r.Context()), ref)
	if err != nil {
		h.logReconciliation(err)
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ReprocessFromResult(result))
}

// logReconciliation records adjustments an operator has to fix by hand.
// The client only ever sees a generic storage error.
func (h *GameHandler) logReconciliation(err error) {
	var se *model.StorageError
	if !errors.As(err, &se) || len(se.Reconciliation) == 0 {
		return
	}
	for _, adj := range se.Reconciliation {
		h.logger.Error("manual reconciliation required",
			slog.String("op", se.Op),
			slog.String("game_id", string(se.GameID)),
			slog.String("player_id", string(adj.PlayerID)),
			slog.String("delta", adj.Delta.String()),
			slog.String("transaction_id", string(adj.TransactionID)),
		)
	}
}

// logResultReconciliation covers bets that were refused but left a record behind
func (h *GameHandler) logResultReconciliation(results []game.PlayerResult) {
	for _, res := range results {
		if res.Err != nil {
			h.logReconciliation(res.Err)
		}
	}
}
