package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"bbb-schedule-sync/internal/models"
	"bbb-schedule-sync/internal/repository"
	"bbb-schedule-sync/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// classifyError maps service errors to an HTTP status and error code.
func classifyError(err error) (int, string, string) {
	var (
		sourceErr  *services.SourceError
		storageErr *services.StorageError
		txErr      *services.TransmissionError
	)

	switch {
	case errors.Is(err, services.ErrRunInProgress):
		return http.StatusConflict, "RUN_IN_PROGRESS", err.Error()
	case errors.Is(err, repository.ErrNoRuns):
		return http.StatusNotFound, "NOT_FOUND", err.Error()
	case errors.As(err, &txErr):
		return http.StatusBadGateway, "TRANSMISSION_FAILED", txErr.Error()
	case errors.As(err, &sourceErr):
		log.Printf("schedule source error: %v", err)
		return http.StatusInternalServerError, "SOURCE_ERROR", "Failed to read scheduled meetings"
	case errors.As(err, &storageErr):
		log.Printf("fingerprint storage error: %v", err)
		return http.StatusInternalServerError, "STORAGE_ERROR", "Failed to access the fingerprint cache"
	default:
		log.Printf("unexpected error: %v", err)
		return http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred"
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message := classifyError(err)
	writeJSON(w, status, errorResp(code, message, r))
}
