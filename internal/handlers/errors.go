package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/middleware"
	"todoReminder/internal/service"
)

const msgInternal = "Internal server error"

func handleBusinessError(w http.ResponseWriter, r *http.Request, err error) bool {
	var businessErr *service.BusinessError
	if !errors.As(err, &businessErr) {
		return false
	}

	statusCode := mapBusinessErrorToHTTP(businessErr.Code)

	logger.Warn("HTTP: business error",
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("error_code", businessErr.Code),
		zap.String("message", businessErr.Message),
		zap.Int("http_status", statusCode))

	if statusCode == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}

	payload := []Payload{
		toPayload("error", businessErr.Code),
		toPayload("message", businessErr.Message),
	}
	if len(businessErr.Details) > 0 {
		payload = append(payload, toPayload("details", businessErr.Details))
	}
	responseWithJSON(w, statusCode, payload...)
	return true
}

// handleServiceError writes a business error as is and hides everything else behind a 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error, operation string) {
	if handleBusinessError(w, r, err) {
		return
	}

	logger.Error("HTTP: service error", err,
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("operation", operation))

	responseWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternal)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeConflict:
		return http.StatusConflict
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeAuth:
		return http.StatusUnauthorized
	case service.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
