package ports

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	e "github.com/ddeerrrriicckk/CircleFlagsKit/internal/errors"
	"github.com/ddeerrrriicckk/CircleFlagsKit/internal/logging"
)

type errorResponse struct {
	Success bool   `json:"success"`
	Cause   string `json:"cause"`
}

func writeErrorResponse(ctx context.Context, w http.ResponseWriter, responseError error) int {
	w.Header().Set("Content-Type", "application/json")

	errorBytes, err := json.Marshal(errorResponse{
		Success: false,
		Cause:   responseError.Error(),
	})
	if err != nil {
		logging.FromContext(ctx).Error("Failed to marshal error response", "error", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"cause":"Internal server error"}`))
		return http.StatusInternalServerError
	}

	// Unknown error: default to 500
	statusCode := http.StatusInternalServerError

	if errors.Is(responseError, e.APIServerError) {
		statusCode = http.StatusInternalServerError
	} else if errors.Is(responseError, e.APIClientError) {
		statusCode = http.StatusBadRequest
	} else if errors.Is(responseError, e.RatelimitExceededError) {
		statusCode = http.StatusTooManyRequests
	}

	w.WriteHeader(statusCode)
	w.Write(errorBytes)

	return statusCode
}
