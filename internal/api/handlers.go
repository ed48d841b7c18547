package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/agent-diff/internal/adapter"
	apperrors "github.com/agent-diff/internal/errors"
	"github.com/agent-diff/internal/types"
)

// DiffResponse is the JSON body of a successful diff request.
type DiffResponse struct {
	Diff   *types.Diff `json:"diff"`
	Report string      `json:"report"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// handleHealth handles health check requests.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "agent-diff",
	})
}

// handleGetDiff runs the diff pipeline for the address in the path.
func (s *Server) handleGetDiff(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	if !adapter.ValidateAddress(address) {
		respondError(w, apperrors.NewInvalidAddressError(address))
		return
	}

	diff, err := s.checker.Check(r.Context(), address)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, DiffResponse{
		Diff:   diff,
		Report: s.renderer.Format(diff),
	})
}

// respondError maps categorized pipeline errors onto HTTP status codes.
func respondError(w http.ResponseWriter, err error) {
	code := apperrors.CodeInternal
	message := "unable to generate diff"

	var categorized *apperrors.CategorizedError
	if errors.As(err, &categorized) {
		code = categorized.Code
		message = categorized.Message
	}

	respondJSON(w, apperrors.HTTPStatusCode(err), ErrorResponse{
		Error: errorBody{Code: code, Message: message},
	})
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		json.NewEncoder(w).Encode(data) // nolint:errcheck // response already committed
	}
}
