package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soares-ari/helpdesk-ai/internal/api/middleware"
	"github.com/soares-ari/helpdesk-ai/internal/storage"
	"github.com/soares-ari/helpdesk-ai/pkg/logger"
)

// ListConversations returns the caller's conversations.
func ListConversations(convs ConversationRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := middleware.UserID(r.Context())

		list, err := convs.ListByUser(r.Context(), userID)
		if err != nil {
			log.WithError(err).Error("failed to list conversations")
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}
		if list == nil {
			list = []storage.Conversation{}
		}
		RespondJSON(w, http.StatusOK, list)
	}
}

// GetConversation returns one of the caller's conversations.
func GetConversation(convs ConversationRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := loadOwnedConversation(w, r, convs, log)
		if !ok {
			return
		}
		RespondJSON(w, http.StatusOK, conv)
	}
}

// GetConversationMessages returns a conversation's messages in order.
func GetConversationMessages(convs ConversationRepository, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conv, ok := loadOwnedConversation(w, r, convs, log)
		if !ok {
			return
		}

		msgs, err := convs.GetMessages(r.Context(), conv.ID)
		if err != nil {
			log.WithError(err).Error("failed to list messages", "conversation_id", conv.ID)
			RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
			return
		}
		if msgs == nil {
			msgs = []storage.Message{}
		}
		RespondJSON(w, http.StatusOK, msgs)
	}
}

// loadOwnedConversation fetches the conversation in the URL and enforces
// ownership, writing the error response itself on failure.
func loadOwnedConversation(w http.ResponseWriter, r *http.Request, convs ConversationRepository, log *logger.Logger) (*storage.Conversation, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		RespondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid conversation id")
		return nil, false
	}

	conv, err := convs.GetConversation(r.Context(), id)
	if err != nil {
		log.WithError(err).Error("failed to load conversation", "conversation_id", id)
		RespondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error")
		return nil, false
	}
	if conv == nil {
		RespondError(w, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return nil, false
	}
	if conv.UserID != middleware.UserID(r.Context()) {
		RespondError(w, http.StatusForbidden, ErrCodeForbidden, "access denied")
		return nil, false
	}
	return conv, true
}
