package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"carbon-filing/internal/service"
)

const (
	ErrMsgInvalidRequestBody = "Invalid request body"
	ErrMsgUnauthorized       = "Unauthorized"
)

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// respondWithServiceError maps service-layer errors onto HTTP status codes
func respondWithServiceError(w http.ResponseWriter, err error) {
	var vErr *service.ValidationError
	var nfErr *service.NotFoundError
	var partial *service.PartialFailure

	switch {
	case errors.Is(err, service.ErrNothingToClear),
		errors.As(err, &vErr):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrApprovedImmutable):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrOperationInFlight):
		respondWithError(w, http.StatusConflict, err.Error())
	case errors.As(err, &nfErr):
		respondWithError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &partial):
		// The mandatory portion completed; report the itemized failures
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusMultiStatus)
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"error":    "completed with failures",
			"failures": partial.Messages,
		})
	default:
		respondWithError(w, http.StatusInternalServerError, err.Error())
	}
}
