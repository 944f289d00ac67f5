package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mcoot/partycasino/internal/api/apierr"
	"github.com/mcoot/partycasino/internal/api/response"
	"github.com/mcoot/partycasino/internal/model"
)

// Re-export from apierr for convenience
type APIError = apierr.APIError
type ErrorResponse = apierr.ErrorResponse

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decodeBody reads a JSON body into dst. Malformed money keeps its own error.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, model.ErrInvalidMoney) {
			return err
		}
		return NewInvalidRequestError("invalid request body")
	}
	return nil
}

// gameRef parses the {ref} path variable
func gameRef(r *http.Request) (model.GameRef, error) {
	return model.ParseGameRef(mux.Vars(r)["ref"])
}

// bearerToken returns the Authorization bearer token, if any
func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

func describe(err error) response.APIError {
	e := apierr.Describe(err)
	return response.APIError{Code: e.Code, Message: e.Message}
}
