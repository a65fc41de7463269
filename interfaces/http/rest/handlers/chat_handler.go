package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clipstream-backend/application/ports"
	"clipstream-backend/application/services"
	"clipstream-backend/pkg/common"
)

// ChatHandler exposes direct messaging over REST. The WebSocket path is the
// primary transport; these routes serve clients without a live connection.
type ChatHandler struct {
	chat   *services.ChatService
	logger *zap.Logger
}

// NewChatHandler creates the chat handler
func NewChatHandler(chat *services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// SendMessageRequest is the payload for POST /api/chat/{userID}/messages
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
	Kind    string `json:"kind" validate:"omitempty,oneof=text video image"`
}

// SendMessage handles POST /api/chat/{userID}/messages
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	msg, err := h.chat.SendMessage(r.Context(), caller, chi.URLParam(r, "userID"), req.Content, req.Kind)
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusCreated, msg)
}

// GetHistory handles GET /api/chat/{userID}/messages
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	params := common.ExtractPaginationParams(r)
	msgs, err := h.chat.GetHistory(r.Context(), caller, chi.URLParam(r, "userID"), ports.Page{
		Offset: params.Offset(),
		Limit:  params.Limit,
	})
	if err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, msgs)
}

// NotifyRequest is the payload for POST /api/users/{userID}/notify
type NotifyRequest struct {
	Payload json.RawMessage `json:"payload" validate:"required"`
}

// Notify handles POST /api/users/{userID}/notify. The payload is pushed
// through to the target's live connections without persistence.
func (h *ChatHandler) Notify(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerID(w, r); !ok {
		return
	}

	var req NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, http.StatusBadRequest, "VALIDATION", err.Error())
		return
	}

	if err := h.chat.Notify(r.Context(), chi.URLParam(r, "userID"), req.Payload); err != nil {
		common.RespondAppError(w, err)
		return
	}
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "notified"})
}
