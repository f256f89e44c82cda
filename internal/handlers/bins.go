package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"aiswo-backend/internal/alerts"
	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"
	"aiswo-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AlertChecker evaluates a snapshot for over-threshold bins.
type AlertChecker interface {
	Check(ctx context.Context, snap chatbot.Snapshot) []alerts.Alert
	Send(ctx context.Context, alert alerts.Alert) int
}

// Invalidator drops cached reads after a write.
type Invalidator interface {
	Invalidate()
}

func invalidate(cache Invalidator) {
	if cache != nil {
		cache.Invalidate()
	}
}

// GetBins lists bins and runs the fill alert check in the background.
func GetBins(st store.Store, monitor AlertChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bins, err := st.ListBins(r.Context())
		if err != nil {
			logger.Error("❌ Failed to fetch bins", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Failed to fetch bins")
			return
		}

		if monitor != nil {
			operators, err := st.ListOperators(r.Context())
			if err != nil {
				logger.Warn("⚠️ Alert check skipped, operators unavailable", zap.Error(err))
			} else {
				snap := chatbot.FromModels(bins, operators)
				go monitor.Check(context.Background(), snap)
			}
		}

		utils.Success(w, bins)
	}
}

func GetBin(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bin, err := st.GetBin(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondStoreError(w, logger, err, "Bin not found", "Failed to fetch bin")
			return
		}
		utils.Success(w, bin)
	}
}

func CreateBin(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.CreateBinRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		req.ID = strings.TrimSpace(req.ID)
		if req.ID == "" {
			utils.Error(w, http.StatusBadRequest, "Bin ID is required")
			return
		}

		bin := &models.Bin{
			ID:         req.ID,
			Name:       req.Name,
			Location:   req.Location,
			Capacity:   req.Capacity,
			OperatorID: req.OperatorID,
			Status:     req.Status,
			FillPct:    models.Float(0),
			WeightKg:   models.Float(0),
		}
		if bin.Status == "" {
			bin.Status = "Normal"
		}
		if bin.OperatorID == "" {
			bin.OperatorID = models.UnassignedOperator
		}

		if err := st.CreateBin(r.Context(), bin); err != nil {
			respondStoreError(w, logger, err, "Bin not found", "Failed to create bin")
			return
		}
		invalidate(cache)

		logger.Info("✅ Bin created", zap.String("bin", bin.ID))
		utils.Created(w, map[string]interface{}{
			"message": "Bin created successfully",
			"bin":     bin,
		})
	}
}

func UpdateBin(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.UpdateBinRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		bin, err := st.UpdateBin(r.Context(), chi.URLParam(r, "id"), &req)
		if err != nil {
			respondStoreError(w, logger, err, "Bin not found", "Failed to update bin")
			return
		}
		invalidate(cache)

		utils.Success(w, map[string]interface{}{
			"message": "Bin updated successfully",
			"bin":     bin,
		})
	}
}

func DeleteBin(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := st.DeleteBin(r.Context(), id); err != nil {
			respondStoreError(w, logger, err, "Bin not found", "Failed to delete bin")
			return
		}
		invalidate(cache)

		logger.Info("🗑️ Bin deleted", zap.String("bin", id))
		utils.Success(w, map[string]string{"message": "Bin deleted successfully"})
	}
}

// ClearBin records that an operator emptied a bin and adds it to the
// operator's completed list. With "completed": false the bin only leaves
// that list. Operators may only clear on their own behalf; admins may clear
// for anyone.
func ClearBin(st store.Store, cache Invalidator, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		operatorID := chi.URLParam(r, "operatorId")
		binID := chi.URLParam(r, "binId")
		if !authorizeOperator(w, r, operatorID) {
			return
		}

		var req models.ClearBinRequest
		if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if !req.IsCompleted() {
			completed, err := st.SetBinCompleted(r.Context(), operatorID, binID, false)
			if err != nil {
				respondStoreError(w, logger, err, "Bin not found", "Failed to update bin clearance status")
				return
			}
			utils.Success(w, map[string]interface{}{
				"completedBins": completed,
				"bin":           nil,
				"timestamp":     time.Now().UTC().Format(time.RFC3339),
			})
			return
		}

		bin, err := st.ClearBin(r.Context(), binID, operatorID, req.Note)
		if err != nil {
			respondStoreError(w, logger, err, "Bin not found", "Failed to update bin clearance status")
			return
		}
		invalidate(cache)

		progress, err := st.OperatorProgress(r.Context(), operatorID)
		if err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to update bin clearance status")
			return
		}

		logger.Info("🧹 Bin cleared", zap.String("bin", binID), zap.String("operator", operatorID))
		utils.Success(w, map[string]interface{}{
			"completedBins": progress.CompletedBins,
			"bin":           bin,
			"timestamp":     bin.LastClearedAt,
		})
	}
}

// GetBinHistory returns the clear events of a bin.
func GetBinHistory(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		events, err := st.BinHistory(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondStoreError(w, logger, err, "History not found", "Failed to fetch history")
			return
		}
		utils.Success(w, events)
	}
}

type testAlertRequest struct {
	FillPct *float64 `json:"fillPct"`
}

// SendTestAlert pushes a synthetic alert for a bin through every notifier,
// ignoring the debounce state. Requires admin authentication.
func SendTestAlert(st store.Store, monitor AlertChecker, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if monitor == nil {
			utils.Error(w, http.StatusServiceUnavailable, "Alerts are disabled")
			return
		}

		var req testAlertRequest
		if err := utils.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		fill := 85.0
		if req.FillPct != nil {
			fill = models.ClampPercent(*req.FillPct)
		}

		bin, err := st.GetBin(r.Context(), chi.URLParam(r, "binId"))
		if err != nil {
			respondStoreError(w, logger, err, "Bin not found", "Failed to send test alert")
			return
		}
		operators, err := st.ListOperators(r.Context())
		if err != nil {
			respondStoreError(w, logger, err, "Operator not found", "Failed to send test alert")
			return
		}

		snap := chatbot.FromModels([]models.Bin{*bin}, operators)
		alert := alerts.Alert{
			BinID:       bin.ID,
			BinName:     snap.Bins[0].Label(),
			Location:    bin.Location,
			FillPercent: fill,
		}
		if op := snap.OperatorFor(bin.ID); op != nil {
			alert.OperatorID = op.ID
			alert.OperatorName = op.Name
		}

		delivered := monitor.Send(r.Context(), alert)
		logger.Info("📣 Test alert sent", zap.String("bin", bin.ID), zap.Int("channels", delivered))
		utils.Success(w, map[string]interface{}{
			"message":   "Test alert sent!",
			"binId":     bin.ID,
			"fillPct":   fill,
			"sentTo":    alert.OperatorID,
			"delivered": delivered,
		})
	}
}

// GetStats aggregates fill levels across all bins.
func GetStats(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		bins, err := st.ListBins(r.Context())
		if err != nil {
			logger.Error("❌ Failed to fetch statistics", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Failed to fetch statistics")
			return
		}
		stats := models.ComputeStats(bins)
		stats.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		utils.Success(w, stats)
	}
}
