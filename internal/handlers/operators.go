package handlers

import (
	"errors"
	"net/http"
	"strings"

	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"
	"aiswo-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

func GetOperators(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ops, err := st.ListOperators(r.Context())
		if err != nil {
			logger.Error("❌ Failed to fetch operators", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Failed to fetch operators")
			return
		}
		utils.Success(w, ops)
	}
}

func GetOperator(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		op, err := st.GetOperator(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to fetch operator")
			return
		}
		utils.Success(w, op)
	}
}

// CreateOperator creates an operator account. Requires admin authentication.
func CreateOperator(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateOperatorRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		req.Email = strings.TrimSpace(req.Email)
		if req.Name == "" || req.Email == "" || req.Password == "" {
			utils.Error(w, http.StatusBadRequest, "Missing required fields (name, email, password)")
			return
		}

		if _, err := st.FindOperatorByEmail(r.Context(), req.Email); err == nil {
			utils.Error(w, http.StatusConflict, "Operator with this email already exists")
			return
		} else if !errors.Is(err, store.ErrNotFound) {
			respondStoreError(w, logger, err, "Operator not found", "Failed to create operator")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			logger.Error("❌ Failed to hash password", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		id := strings.TrimSpace(req.ID)
		if id == "" {
			id = uuid.New().String()
		}
		op := &models.Operator{
			ID:           id,
			Name:         req.Name,
			Email:        req.Email,
			Phone:        req.Phone,
			AssignedBins: models.StringList(req.AssignedBins),
			Password:     string(hashedPassword),
			Role:         models.RoleOperator,
		}
		if op.AssignedBins == nil {
			op.AssignedBins = models.StringList{}
		}

		if err := st.CreateOperator(r.Context(), op); err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to create operator")
			return
		}
		invalidate(cache)

		logger.Info("✅ Operator created", zap.String("operator", op.ID), zap.String("email", op.Email))
		utils.Created(w, map[string]interface{}{
			"message":  "Operator created successfully",
			"operator": op,
		})
	}
}

func UpdateOperator(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateOperatorRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		op, err := st.GetOperator(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to update operator")
			return
		}

		if req.Name != "" {
			op.Name = req.Name
		}
		if req.Email != "" {
			op.Email = strings.TrimSpace(req.Email)
		}
		if req.Phone != "" {
			op.Phone = req.Phone
		}
		if req.AssignedBins != nil {
			op.AssignedBins = models.StringList(*req.AssignedBins)
		}
		if req.Password != "" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
			if err != nil {
				logger.Error("❌ Failed to hash password", zap.Error(err))
				utils.Error(w, http.StatusInternalServerError, "Failed to hash password")
				return
			}
			op.Password = string(hashedPassword)
		}

		if err := st.UpdateOperator(r.Context(), op); err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to update operator")
			return
		}
		invalidate(cache)

		utils.Success(w, map[string]interface{}{
			"message":  "Operator updated successfully",
			"operator": op,
		})
	}
}

func DeleteOperator(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := st.DeleteOperator(r.Context(), id); err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to delete operator")
			return
		}
		invalidate(cache)

		logger.Info("🗑️ Operator deleted", zap.String("operator", id))
		utils.Success(w, map[string]string{"message": "Operator deleted successfully"})
	}
}
