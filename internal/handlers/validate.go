package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"todoReminder/internal/logger"
	"todoReminder/internal/middleware"
	"todoReminder/internal/service"
)

const maxBodyBytes = 1 << 20

func checkContentType(r *http.Request, target string) bool {
	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		return false
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}

	return mediaType == target
}

// decodeJSON reads a JSON body into dst. It writes the error response itself
// and reports whether the handler may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if !checkContentType(r, "application/json") {
		logger.Warn("HTTP: unsupported content type",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("received", r.Header.Get("Content-Type")))
		responseWithError(w, http.StatusUnsupportedMediaType, service.CodeValidation,
			"Content-Type must be application/json")
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		logger.Warn("HTTP: invalid JSON body",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.Error(err))
		message := "Invalid request body"
		if errors.Is(err, io.EOF) {
			message = "Request body is empty"
		}
		responseWithError(w, http.StatusBadRequest, service.CodeValidation, message)
		return false
	}
	return true
}

// pathID parses the {id} URL parameter as a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		logger.Warn("HTTP: invalid id",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("id", raw))
		responseWithError(w, http.StatusBadRequest, service.CodeValidation, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// caller returns the authenticated identity. Routes that use it are mounted
// behind middleware.Authenticate, so a missing identity is a wiring bug.
func caller(w http.ResponseWriter, r *http.Request) (service.Identity, bool) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		logger.Error("HTTP: identity missing from authenticated route", nil,
			zap.String("path", r.URL.Path))
		responseWithError(w, http.StatusInternalServerError, "INTERNAL_ERROR", msgInternal)
		return service.Identity{}, false
	}
	return identity, true
}
