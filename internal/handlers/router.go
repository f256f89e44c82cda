package handlers

import (
	"net/http"
	"time"

	"aiswo-backend/internal/chatbot"
	"aiswo-backend/internal/middleware"
	"aiswo-backend/internal/models"
	"aiswo-backend/internal/store"
	"aiswo-backend/internal/websocket"
	"aiswo-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Deps are the services the HTTP routes are built from. Monitor, Cache and
// Hub are optional.
type Deps struct {
	Store     store.Store
	Assistant *chatbot.Assistant
	Monitor   AlertChecker
	Cache     Invalidator
	Hub       *websocket.Hub
	JWTSecret string
	Backend   string
	Logger    *zap.Logger
}

// NewRouter builds the chi router with every route of the API.
func NewRouter(d Deps) http.Handler {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{
			"status":    "ok",
			"backend":   d.Backend,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		}
		if c, ok := d.Cache.(*store.SnapshotCache); ok {
			body["snapshotCache"] = c.Stats()
		}
		utils.Success(w, body)
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/login", Login(d.Store, d.JWTSecret, logger))

	if d.Hub != nil {
		r.Get("/ws", websocket.HandleWebSocket(d.Hub, d.JWTSecret))
	}

	r.Get("/bins", GetBins(d.Store, d.Monitor, logger))
	r.Get("/bins/{id}", GetBin(d.Store, logger))
	r.Get("/bins/{id}/history", GetBinHistory(d.Store, logger))
	r.Get("/stats", GetStats(d.Store, logger))
	r.Get("/operators", GetOperators(d.Store, logger))
	r.Get("/operators/{id}", GetOperator(d.Store, logger))

	if d.Assistant != nil {
		r.Route("/chatbot", func(r chi.Router) {
			r.Post("/message", ChatMessage(d.Assistant, logger))
			r.Get("/history/{userId}", ChatHistory(d.Assistant))
			r.Delete("/history/{userId}", ClearChatHistory(d.Assistant))
			r.Get("/stats", ChatStats(d.Assistant))
			r.Post("/report", ReportIssue(d.Assistant, logger))
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(d.JWTSecret, logger))

		r.Post("/operators/{operatorId}/bins/{binId}/clear", ClearBin(d.Store, d.Cache, logger))
		r.Get("/operators/{id}/progress", GetOperatorProgress(d.Store, logger))
		r.Post("/operators/{id}/tasks/{taskId}", UpdateOperatorTask(d.Store, logger))
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(d.JWTSecret, logger))
		r.Use(middleware.RequireRole(models.RoleAdmin))

		r.Post("/bins", CreateBin(d.Store, d.Cache, logger))
		r.Put("/bins/{id}", UpdateBin(d.Store, d.Cache, logger))
		r.Delete("/bins/{id}", DeleteBin(d.Store, d.Cache, logger))
		r.Post("/test-alert/{binId}", SendTestAlert(d.Store, d.Monitor, logger))

		r.Post("/operators", CreateOperator(d.Store, d.Cache, logger))
		r.Put("/operators/{id}", UpdateOperator(d.Store, d.Cache, logger))
		r.Delete("/operators/{id}", DeleteOperator(d.Store, d.Cache, logger))
	})

	return r
}
