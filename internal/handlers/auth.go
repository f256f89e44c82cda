package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"aiswo-backend/internal/middleware"
	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"
	"aiswo-backend/pkg/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Login authenticates an admin or, failing that, an operator and returns a JWT.
func Login(st store.Store, jwtSecret string, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.LoginRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if req.Email == "" || req.Password == "" {
			utils.Error(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		if jwtSecret == "" {
			logger.Error("❌ JWT secret not configured")
			utils.JSON(w, http.StatusInternalServerError, models.LoginResponse{OK: false})
			return
		}

		logger.Info("🔐 Login attempt", zap.String("email", req.Email))

		profile, hash, err := findAccount(r, st, req.Email)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				logger.Info("❌ Account not found", zap.String("email", req.Email))
				utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
				return
			}
			logger.Error("❌ Login failed", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Login failed")
			return
		}

		if hash == "" {
			utils.Error(w, http.StatusUnauthorized, "Account setup incomplete (no password set)")
			return
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
			logger.Info("❌ Invalid password", zap.String("email", req.Email))
			utils.Error(w, http.StatusUnauthorized, "Invalid credentials")
			return
		}

		token, err := middleware.IssueToken(jwtSecret, middleware.UserClaims{
			UserID: profile.UserID,
			Email:  profile.Email,
			Role:   profile.Role,
		}, time.Now())
		if err != nil {
			logger.Error("❌ Failed to create token", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		logger.Info("✅ Login successful", zap.String("email", profile.Email), zap.String("role", profile.Role))
		utils.Success(w, models.LoginResponse{
			OK:    true,
			Token: token,
			User:  &profile,
		})
	}
}

// findAccount looks up admins first, then operators.
func findAccount(r *http.Request, st store.Store, email string) (models.UserResponse, string, error) {
	admin, err := st.GetAdminByEmail(r.Context(), email)
	if err == nil {
		return admin.ToUserResponse(), admin.Password, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return models.UserResponse{}, "", err
	}

	op, err := st.FindOperatorByEmail(r.Context(), email)
	if err != nil {
		return models.UserResponse{}, "", err
	}
	return op.ToUserResponse(), op.Password, nil
}
