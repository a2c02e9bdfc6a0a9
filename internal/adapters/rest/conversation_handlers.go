package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"rental-system/internal/contextkeys"
	"rental-system/internal/core/port"
	"rental-system/internal/core/port/usecases_port"

	"github.com/go-chi/chi/v5"
)

type ConversationHandler struct {
	client usecases_port.ConversationClientPort
}

func NewConversationHandler(client usecases_port.ConversationClientPort) *ConversationHandler {
	return &ConversationHandler{client: client}
}

// ListConversations handles GET /api/v1/conversations. Anonymous callers get an empty list.
func (h *ConversationHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "ListConversations"})

	convs, err := h.client.FetchConversations(r.Context())
	if err != nil {
		writeDomainError(w, logger, err, "Failed to retrieve conversations")
		return
	}

	user, _ := contextkeys.UserFromContext(r.Context())
	RespondWithJSON(w, http.StatusOK, toConversationResponses(convs, user.UserID))
}

// SendMessage handles POST /api/v1/messages.
func (h *ConversationHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "SendMessage"})

	var req SendMessageRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 16<<10)).Decode(&req); err != nil {
		logger.Warn("Failed to decode request body for send message", port.Fields{"error": err.Error()})
		WriteJSONError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg, err := h.client.SendMessage(r.Context(), req.Content, req.PropertyID, req.ReceiverID)
	if err != nil {
		writeDomainError(w, logger, err, "Failed to send message")
		return
	}
	RespondWithJSON(w, http.StatusCreated, toMessageResponse(*msg))
}

// MarkAsRead handles POST /api/v1/conversations/{id}/read.
func (h *ConversationHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	logger := contextkeys.LoggerFromContext(r.Context()).WithFields(port.Fields{"handler": "MarkAsRead", "conversation_id": id})

	if err := h.client.MarkAsRead(r.Context(), id); err != nil {
		writeDomainError(w, logger, err, "Failed to mark conversation as read")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
