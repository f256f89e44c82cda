package handlers

import (
	"errors"
	"net/http"

	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/models"
	"aiswo-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type chatMessageRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
}

// ChatMessage answers POST /chatbot/message
func ChatMessage(assistant *chatbot.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req chatMessageRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		reply, err := assistant.Chat(r.Context(), req.UserID, req.Message)
		if errors.Is(err, chatbot.ErrEmptyMessage) {
			utils.Error(w, http.StatusBadRequest, "Message is required")
			return
		}
		if err != nil {
			logger.Error("❌ Chatbot endpoint error", zap.Error(err))
			utils.JSON(w, http.StatusInternalServerError, map[string]string{
				"error":    "Failed to process message",
				"response": "I'm having trouble right now. Please try again! 🤖",
			})
			return
		}
		utils.Success(w, reply)
	}
}

func ChatHistory(assistant *chatbot.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		history := assistant.History(userID)
		if history == nil {
			history = []chatbot.Turn{}
		}
		utils.Success(w, map[string]interface{}{
			"userId":       userID,
			"history":      history,
			"messageCount": len(history),
		})
	}
}

func ClearChatHistory(assistant *chatbot.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		assistant.ClearHistory(userID)
		utils.Success(w, map[string]interface{}{
			"userId":  userID,
			"message": "Conversation history cleared",
			"success": true,
		})
	}
}

func ChatStats(assistant *chatbot.Assistant) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.Success(w, assistant.Stats())
	}
}

// ReportIssue files a ticket through POST /chatbot/report
func ReportIssue(assistant *chatbot.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.ReportRequest
		if err := utils.DecodeJSON(r, &req); err != nil {
			utils.Error(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		ticket, guidance, err := assistant.Report(r.Context(), req.UserID, req.BinID, req.Issue, req.Description)
		if errors.Is(err, chatbot.ErrInvalidReport) {
			utils.Error(w, http.StatusBadRequest, "binId and issue are required")
			return
		}
		if err != nil {
			logger.Error("❌ Error reporting issue", zap.Error(err))
			utils.Error(w, http.StatusInternalServerError, "Failed to report issue")
			return
		}

		utils.Success(w, map[string]interface{}{
			"ticket":          ticket,
			"chatbotResponse": guidance,
			"message":         "Issue reported successfully",
		})
	}
}
