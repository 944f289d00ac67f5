package apierr

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mcoot/partycasino/internal/model"
	"github.com/mcoot/partycasino/internal/services/auth"
)

// APIError represents an API error response
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse wraps an APIError
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// Common error codes
const (
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeInvalidMoney        = "INVALID_MONEY"
	CodeInvalidBet          = "INVALID_BET"
	CodeInvalidPlayerName   = "INVALID_PLAYER_NAME"
	CodeInvalidLocalGame    = "INVALID_LOCAL_GAME"
	CodeNoPlayers           = "NO_PLAYERS"
	CodeUnauthorized        = "UNAUTHORIZED"
	CodeForbidden           = "FORBIDDEN"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodePlayerNotFound      = "PLAYER_NOT_FOUND"
	CodeGameNotFound        = "GAME_NOT_FOUND"
	CodeLocalGameNotSynced  = "LOCAL_GAME_NOT_SYNCED"
	CodeNotFound            = "NOT_FOUND"
	CodePlayerExists        = "PLAYER_EXISTS"
	CodeGameNotActive       = "GAME_NOT_ACTIVE"
	CodeGameNotCompleted    = "GAME_NOT_COMPLETED"
	CodeDuplicatePlayer     = "DUPLICATE_PLAYER"
	CodeUnknownWinner       = "UNKNOWN_WINNER"
	CodeInsufficientBalance = "INSUFFICIENT_BALANCE"
	CodeStorageUnavailable  = "STORAGE_UNAVAILABLE"
	CodeInternalError       = "INTERNAL_ERROR"
)

// httpError combines an HTTP status code with an APIError
type httpError struct {
	status   int
	apiError APIError
}

// Error implements error interface
func (e *httpError) Error() string {
	return e.apiError.Message
}

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	he := toHTTPError(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(he.status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: he.apiError})
}

// Status returns the HTTP status err maps to
func Status(err error) int {
	return toHTTPError(err).status
}

// Describe returns the client-facing code and message for err
func Describe(err error) APIError {
	return toHTTPError(err).apiError
}

// toHTTPError converts an error to an httpError
func toHTTPError(err error) *httpError {
	// Check for specific error types
	var he *httpError
	if errors.As(err, &he) {
		return he
	}

	switch {
	// Storage failures first: never leak the underlying message
	case errors.Is(err, model.ErrStorage):
		return &httpError{http.StatusServiceUnavailable, APIError{CodeStorageUnavailable, "Storage is unavailable, try again"}}

	// Not found
	case errors.Is(err, model.ErrPlayerNotFound):
		return &httpError{http.StatusNotFound, APIError{CodePlayerNotFound, "Player not found"}}
	case errors.Is(err, model.ErrGameNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeGameNotFound, "Game not found"}}
	case errors.Is(err, model.ErrLocalGameNotSynced):
		return &httpError{http.StatusNotFound, APIError{CodeLocalGameNotSynced, "Local game has not been synced"}}
	case errors.Is(err, model.ErrNotFound):
		return &httpError{http.StatusNotFound, APIError{CodeNotFound, "Not found"}}

	// State conflicts
	case errors.Is(err, model.ErrGameNotActive):
		return &httpError{http.StatusConflict, APIError{CodeGameNotActive, "Game is not active"}}
	case errors.Is(err, model.ErrGameNotCompleted):
		return &httpError{http.StatusConflict, APIError{CodeGameNotCompleted, "Game is not completed"}}
	case errors.Is(err, model.ErrDuplicatePlayer):
		return &httpError{http.StatusConflict, APIError{CodeDuplicatePlayer, "Player is already in the game"}}
	case errors.Is(err, model.ErrPlayerExists):
		return &httpError{http.StatusConflict, APIError{CodePlayerExists, "Player already exists"}}

	// Validation
	case errors.Is(err, model.ErrUnknownWinner):
		return &httpError{http.StatusBadRequest, APIError{CodeUnknownWinner, "Winner is not a participant"}}
	case errors.Is(err, model.ErrInvalidBet):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidBet, "Bet must be positive"}}
	case errors.Is(err, model.ErrNoPlayers):
		return &httpError{http.StatusBadRequest, APIError{CodeNoPlayers, "Game needs at least one player"}}
	case errors.Is(err, model.ErrInvalidMoney):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidMoney, "Invalid money amount"}}
	case errors.Is(err, model.ErrInvalidPlayerName):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidPlayerName, "Invalid player name"}}
	case errors.Is(err, model.ErrInvalidLocalGame):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidLocalGame, "Invalid local game"}}
	case errors.Is(err, model.ErrInvalidGameRef):
		return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, "Invalid game reference"}}

	case errors.Is(err, model.ErrInsufficientBalance):
		return &httpError{http.StatusPaymentRequired, APIError{CodeInsufficientBalance, "Insufficient balance"}}

	// Access
	case errors.Is(err, model.ErrNotAuthorized):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Admin access required"}}
	case errors.Is(err, auth.ErrInvalidCredentials):
		return &httpError{http.StatusUnauthorized, APIError{CodeInvalidCredentials, "Invalid password"}}
	case errors.Is(err, auth.ErrAdminDisabled):
		return &httpError{http.StatusForbidden, APIError{CodeForbidden, "Admin login is disabled"}}
	case errors.Is(err, auth.ErrInvalidSession):
		return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Invalid or expired session"}}

	default:
		return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return &httpError{http.StatusBadRequest, APIError{CodeInvalidRequest, message}}
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError() error {
	return &httpError{http.StatusUnauthorized, APIError{CodeUnauthorized, "Authentication required"}}
}

// NewInternalError creates an internal server error
func NewInternalError() error {
	return &httpError{http.StatusInternalServerError, APIError{CodeInternalError, "Internal server error"}}
}
