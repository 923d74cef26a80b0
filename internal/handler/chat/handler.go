package chat

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/daehak-dining/chatbot/backend/internal/model/chat"
	"github.com/daehak-dining/chatbot/backend/internal/model/dining"
	"github.com/daehak-dining/chatbot/backend/internal/observability"
	"github.com/daehak-dining/chatbot/backend/internal/service/chatbot"
	"github.com/daehak-dining/chatbot/backend/internal/service/session"
	"github.com/daehak-dining/chatbot/backend/pkg/utils"
)

// Handler serves the REST chat endpoints.
type Handler struct {
	bot      *chatbot.Service
	sessions *session.Store
	metrics  *observability.Metrics
}

// New creates the chat handler.
func New(bot *chatbot.Service, sessions *session.Store, metrics *observability.Metrics) *Handler {
	return &Handler{bot: bot, sessions: sessions, metrics: metrics}
}

// RegisterRoutes mounts the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/chat/simple", h.handleSimpleChat)
	r.Post("/recommend", h.handleRecommend)
	r.Get("/sessions/{userID}/history", h.handleHistory)
	r.Delete("/sessions/{userID}", h.handleClearSession)
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// platformMenu is the menu shape sent by the management backend. It carries
// nutrition as a nested object and is converted to the canonical menu entry
// at this boundary.
type platformMenu struct {
	Name           string `json:"name"`
	Price          *int   `json:"price,omitempty"`
	RestaurantName string `json:"restaurantName,omitempty"`
	NutritionInfo  *struct {
		Calories *int `json:"calories,omitempty"`
	} `json:"nutritionInfo,omitempty"`
}

type chatRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
	// ConversationHistory is the canonical prior-turns shape; PreviousMessages
	// is the platform variant with upper-cased roles. When both are present
	// the platform shape wins.
	ConversationHistory []historyMessage `json:"conversationHistory"`
	PreviousMessages    []historyMessage `json:"previousMessages"`
	Context             *dining.Context  `json:"context"`
	Menus               []platformMenu   `json:"menus"`
}

type recommendRequest struct {
	DietaryRestrictions []string      `json:"dietaryRestrictions"`
	PreferredCuisine    string        `json:"preferredCuisine"`
	Budget              *int          `json:"budget"`
	AvailableMenus      []dining.Menu `json:"availableMenus"`
}

func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(payload.Message) == "" {
		utils.RespondError(w, http.StatusBadRequest, "message is required")
		return
	}

	info := payload.Context
	if menus := convertPlatformMenus(payload.Menus); len(menus) > 0 {
		if info == nil {
			info = &dining.Context{}
		}
		info.Menus = menus
	}

	start := time.Now()
	result := h.bot.Chat(r.Context(), payload.UserID, payload.Message, info, normalizeHistory(payload.history()))
	h.metrics.RecordChat("chat", result.Err != "", result.TokensUsed, time.Since(start))

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSimpleChat(w http.ResponseWriter, r *http.Request) {
	message := strings.TrimSpace(r.URL.Query().Get("message"))
	if message == "" {
		utils.RespondError(w, http.StatusBadRequest, "message query parameter is required")
		return
	}

	start := time.Now()
	result := h.bot.Chat(r.Context(), "", message, nil, nil)
	h.metrics.RecordChat("chat_simple", result.Err != "", result.TokensUsed, time.Since(start))

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRecommend(w http.ResponseWriter, r *http.Request) {
	var payload recommendRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	prefs := &dining.Preferences{
		DietaryRestrictions: payload.DietaryRestrictions,
		PreferredCuisine:    payload.PreferredCuisine,
		Budget:              payload.Budget,
	}

	start := time.Now()
	result := h.bot.Recommend(r.Context(), prefs, payload.AvailableMenus)
	h.metrics.RecordChat("recommend", result.Err != "", result.TokensUsed, time.Since(start))

	utils.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	history := h.sessions.History(userID)
	if history == nil {
		history = []chat.Turn{}
	}

	payload := map[string]interface{}{
		"userId":  userID,
		"history": history,
	}
	if sess, ok := h.sessions.Peek(userID); ok {
		payload["session"] = sess
	}
	utils.RespondJSON(w, http.StatusOK, payload)
}

func (h *Handler) handleClearSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	h.sessions.Clear(userID)
	utils.RespondJSON(w, http.StatusOK, map[string]string{"message": "session cleared"})
}

func (p chatRequest) history() []historyMessage {
	if len(p.PreviousMessages) > 0 {
		return p.PreviousMessages
	}
	return p.ConversationHistory
}

// normalizeHistory maps boundary history messages onto the canonical turn
// shape. Roles are case-normalized; anything unrecognized is treated as a
// user turn rather than rejected.
func normalizeHistory(messages []historyMessage) []chat.Turn {
	if len(messages) == 0 {
		return nil
	}
	turns := make([]chat.Turn, 0, len(messages))
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		role := chat.RoleUser
		switch strings.ToLower(strings.TrimSpace(m.Role)) {
		case string(chat.RoleAssistant):
			role = chat.RoleAssistant
		case string(chat.RoleSystem):
			role = chat.RoleSystem
		}
		turns = append(turns, chat.Turn{Role: role, Content: m.Content})
	}
	return turns
}

func convertPlatformMenus(menus []platformMenu) []dining.Menu {
	if len(menus) == 0 {
		return nil
	}
	converted := make([]dining.Menu, 0, len(menus))
	for _, m := range menus {
		entry := dining.Menu{Name: m.Name, Price: m.Price}
		if m.NutritionInfo != nil {
			entry.Calories = m.NutritionInfo.Calories
		}
		converted = append(converted, entry)
	}
	return converted
}
