package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/soares-ari/helpdesk-ai/internal/api/middleware"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// ChatRequest is the body of a chat turn. conversation_id is optional; when
// absent a new conversation is started.
type ChatRequest struct {
	ConversationID *int64 `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// HandleChat answers a user message with retrieved document context.
func HandleChat(chat ChatService, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid request body")
			return
		}

		result, err := chat.Chat(r.Context(), middleware.UserID(r.Context()), req.ConversationID, req.Message)
		if err != nil {
			log.WithError(err).Error("chat failed")
			RespondAppError(w, err)
			return
		}

		RespondJSON(w, http.StatusOK, result)
	}
}
