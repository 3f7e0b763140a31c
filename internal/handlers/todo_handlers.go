package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"todoReminder/internal/handlers/dto"
	"todoReminder/internal/logger"
	"todoReminder/internal/models/task"
	"todoReminder/internal/service"
)

type TodoHandler struct {
	tasks TaskService
}

func NewTodoHandler(tasks TaskService) *TodoHandler {
	return &TodoHandler{tasks: tasks}
}

func (h *TodoHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var request dto.CreateTodoRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	created, err := h.tasks.CreateTask(r.Context(), identity.UserID, service.CreateTaskInput{
		Title:       request.Title,
		Description: request.Description,
		Completed:   request.Completed,
		DueAt:       request.DueDate,
		ReminderAt:  request.ReminderAt,
	})
	if err != nil {
		handleServiceError(w, r, err, "create_todo")
		return
	}

	logger.Info("HTTP: todo created",
		zap.Int64("user_id", identity.UserID),
		zap.Int64("task_id", created.ID))

	responseWithBody(w, http.StatusCreated, dto.FromTask(created))
}

func (h *TodoHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListTasks(r.Context(), identity.UserID)
	if err != nil {
		handleServiceError(w, r, err, "list_todos")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromTaskList(tasks))
}

func (h *TodoHandler) Get(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	t, err := h.tasks.GetTask(r.Context(), identity.UserID, id)
	if err != nil {
		handleServiceError(w, r, err, "get_todo")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromTask(t))
}

func (h *TodoHandler) Patch(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var patch task.Patch
	if !decodeJSON(w, r, &patch) {
		return
	}

	updated, err := h.tasks.PatchTask(r.Context(), identity.UserID, id, patch)
	if err != nil {
		handleServiceError(w, r, err, "patch_todo")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromTask(updated))
}

func (h *TodoHandler) Replace(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var request dto.ReplaceTodoRequest
	if !decodeJSON(w, r, &request) {
		return
	}

	updated, err := h.tasks.ReplaceTask(r.Context(), identity.UserID, id, request.ToReplacement())
	if err != nil {
		handleServiceError(w, r, err, "replace_todo")
		return
	}

	responseWithBody(w, http.StatusOK, dto.FromTask(updated))
}

func (h *TodoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), identity.UserID, id); err != nil {
		handleServiceError(w, r, err, "delete_todo")
		return
	}

	logger.Info("HTTP: todo deleted",
		zap.Int64("user_id", identity.UserID),
		zap.Int64("task_id", id))

	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.tasks.HealthCheck(r.Context()); err != nil {
		logger.Error("HTTP: health check failed", err)
		responseWithJSON(w, http.StatusServiceUnavailable,
			toPayload("status", "unavailable"),
			toPayload("service", "todo-reminder"))
		return
	}

	responseWithJSON(w, http.StatusOK,
		toPayload("status", "ok"),
		toPayload("service", "todo-reminder"))
}
