package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"todoReminder/internal/handlers/dto"
	"todoReminder/internal/logger"
	"todoReminder/internal/service"
)

type UserHandler struct {
	users UserService
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var request dto.CredentialsRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.users.Register(r.Context(), request.Username, request.Password)
	if err != nil {
		handleServiceError(w, r, err, "register")
		return
	}

	logger.Info("HTTP: user registered", zap.Int64("user_id", created.ID))

	responseWithBody(w, http.StatusCreated, dto.RegisterResponse{ID: created.ID, Username: created.Username})
}

// Token accepts the OAuth2 password form as well as a JSON body.
func (h *UserHandler) Token(w http.ResponseWriter, r *http.Request) {
	var creds dto.CredentialsRequest
	if checkContentType(r, "application/x-www-form-urlencoded") || checkContentType(r, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		if err := r.ParseForm(); err != nil {
			responseWithError(w, http.StatusBadRequest, service.CodeValidation, "Invalid form body")
			return
		}
		creds.Username = r.PostFormValue("username")
		creds.Password = r.PostFormValue("password")
	} else if !decodeJSON(w, r, &creds) {
		return
	}

	token, err := h.users.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		handleServiceError(w, r, err, "login")
		return
	}

	responseWithBody(w, http.StatusOK, dto.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	users, err := h.users.ListUsers(r.Context(), identity)
	if err != nil {
		handleServiceError(w, r, err, "list_users")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromUserList(users))
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.users.DeleteUser(r.Context(), identity, id); err != nil {
		handleServiceError(w, r, err, "delete_user")
		return
	}

	logger.Info("HTTP: user deleted",
		zap.Int64("admin_id", identity.UserID),
		zap.Int64("user_id", id))

	w.WriteHeader(http.StatusNoContent)
}
