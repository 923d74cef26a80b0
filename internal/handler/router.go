package handler

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	chatHandler "github.com/daehak-dining/chatbot/backend/internal/handler/chat"
	streamHandler "github.com/daehak-dining/chatbot/backend/internal/handler/stream"
	wsHandler "github.com/daehak-dining/chatbot/backend/internal/handler/ws"
	middlewarePkg "github.com/daehak-dining/chatbot/backend/internal/middleware"
	"github.com/daehak-dining/chatbot/backend/internal/observability"
	aiService "github.com/daehak-dining/chatbot/backend/internal/service/ai"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
	"github.com/daehak-dining/chatbot/backend/internal/service/session"
	"github.com/daehak-dining/chatbot/backend/pkg/utils"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(bot *chatbot.Service, sessions *session.Store, aiSvc *aiService.Service, metrics *observability.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Get("/", handleHealth(aiSvc))
	r.Get("/health", handleHealth(aiSvc))
	r.Handle("/metrics", observability.Handler())

	var backend streamHandler.Backend
	if aiSvc != nil {
		backend = aiSvc
	}
	streaming := streamHandler.New(backend, bot, metrics)

	r.Route("/api", func(api chi.Router) {
		chatHandler.New(bot, sessions, metrics).RegisterRoutes(api)
		wsHandler.New(bot, metrics).RegisterRoutes(api)

		api.Get("/stream", func(w http.ResponseWriter, r *http.Request) {
			userID := r.URL.Query().Get("userId")
			userMessage := r.URL.Query().Get("message")

			if userMessage == "" {
				utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
				return
			}

			if err := streaming.HandleStreamRequest(r.Context(), w, userID, userMessage); err != nil {
				log.Printf("[stream] error handling request: %v", err)
			}
		})
	})

	return r
}

func handleHealth(aiSvc *aiService.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "configured"
		if aiSvc == nil {
			status = "not_configured"
		}
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "healthy",
			"message": "cafeteria chatbot API is running (model: " + status + ")",
		})
	}
}
