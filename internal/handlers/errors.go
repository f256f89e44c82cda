package handlers

import (
	"errors"
	"net/http"

	"aiswo-backend/internal/store"
	"aiswo-backend/pkg/utils"

	"go.uber.org/zap"
)

// respondStoreError maps store sentinels to HTTP statuses.
func respondStoreError(w http.ResponseWriter, logger *zap.Logger, err error, notFound, failed string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.Error(w, http.StatusNotFound, notFound)
	case errors.Is(err, store.ErrAlreadyExists):
		utils.Error(w, http.StatusConflict, "Already exists")
	default:
		logger.Error("❌ "+failed, zap.Error(err))
		utils.Error(w, http.StatusInternalServerError, failed)
	}
}
