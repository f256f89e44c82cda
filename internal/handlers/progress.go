package handlers

import (
	"errors"
	"io"
	"net/http"

	"aiswo-backend/internal/middleware"
	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"
	"aiswo-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// authorizeOperator lets operators act on their own record and admins on anyone's.
// It writes the error response and returns false otherwise.
func authorizeOperator(w http.ResponseWriter, r *http.Request, operatorID string) bool {
	user, ok := middleware.GetUserFromContext(r)
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "Unauthorized")
		return false
	}
	if user.Role != models.RoleAdmin && user.UserID != operatorID {
		utils.Error(w, http.StatusForbidden, "Forbidden")
		return false
	}
	return true
}

// GetOperatorProgress returns the operator's completed bins and task checklist.
func GetOperatorProgress(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID := chi.URLParam(r, "id")
		if !authorizeOperator(w, r, operatorID) {
			return
		}
		if _, err := st.GetOperator(r.Context(), operatorID); err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to fetch operator progress")
			return
		}

		progress, err := st.OperatorProgress(r.Context(), operatorID)
		if err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to fetch operator progress")
			return
		}
		utils.Success(w, progress)
	}
}

// UpdateOperatorTask ticks (or unticks) one item of the operator's checklist.
func UpdateOperatorTask(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID := chi.URLParam(r, "id")
		taskID := chi.URLParam(r, "taskId")
		if !authorizeOperator(w, r, operatorID) {
			return
		}

		var req models.UpdateTaskRequest
		if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if _, err := st.GetOperator(r.Context(), operatorID); err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to update task status")
			return
		}

		tasks, err := st.SetTaskCompleted(r.Context(), operatorID, taskID, req.Completed)
		if err != nil {
			respondStoreError(w, logger, err, "Task not found", "Failed to update task status")
			return
		}

		logger.Info("✅ Operator task updated",
			zap.String("operator", operatorID),
			zap.String("task", taskID),
			zap.Bool("completed", req.Completed),
		)
		utils.Success(w, map[string]interface{}{"tasks": tasks})
	}
}
