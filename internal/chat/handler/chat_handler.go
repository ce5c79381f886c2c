// Package handler serves the REST side of chat: history and bulk clear.
package handler

import (
	"net/http"
	"strconv"
	"time"

	"gosocial/internal/chat/service"
	"gosocial/internal/common"
	"gosocial/internal/dbmongo"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:generate mockgen -destination=mocks/chat_service_mock.go -package=mocks gosocial/internal/chat/service ChatService

type MessageResponse struct {
	ID          string             `json:"id"`
	SenderID    string             `json:"senderId"`
	ReceiverID  string             `json:"receiverId"`
	Content     string             `json:"content"`
	Kind        common.MessageKind `json:"kind"`
	Media       *dbmongo.MediaRef  `json:"media,omitempty"`
	PostRef     string             `json:"postRef,omitempty"`
	Read        bool               `json:"read"`
	Seen        bool               `json:"seen"`
	ReadAt      *time.Time         `json:"readAt,omitempty"`
	ClientMsgID string             `json:"clientMsgId,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type ChatHandler struct {
	chatService service.ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		logger:      logger,
	}
}

// RegisterRoutes mounts the handlers on an authenticated router.
func (h *ChatHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/conversations/{peerID}/messages", h.GetChatHistory).Methods(http.MethodGet)
	r.HandleFunc("/conversations/{peerID}", h.ClearConversation).Methods(http.MethodDelete)
}

// GetChatHistory lets a client catch up on what it missed while offline.
func (h *ChatHandler) GetChatHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, common.Unauthenticated(common.ReasonMissingToken, "authorization required", nil))
		return
	}

	limit := queryInt64(r, "limit", 0)
	offset := queryInt64(r, "offset", 0)

	messages, err := h.chatService.Conversation(r.Context(), userID, mux.Vars(r)["peerID"], limit, offset)
	if err != nil {
		if common.KindOf(err) == common.KindInfrastructure {
			h.logger.Error("failed to load conversation", zap.String("userID", userID), zap.Error(err))
		}
		common.WriteError(w, common.StatusFor(err), err)
		return
	}

	out := make([]MessageResponse, 0, len(messages))
	for _, m := range messages {
		out = append(out, toResponse(m))
	}
	common.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"messages": out,
	})
}

func (h *ChatHandler) ClearConversation(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, common.Unauthenticated(common.ReasonMissingToken, "authorization required", nil))
		return
	}

	deleted, err := h.chatService.ClearConversation(r.Context(), userID, mux.Vars(r)["peerID"])
	if err != nil {
		if common.KindOf(err) == common.KindInfrastructure {
			h.logger.Error("failed to clear conversation", zap.String("userID", userID), zap.Error(err))
		}
		common.WriteError(w, common.StatusFor(err), err)
		return
	}
	common.WriteJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}

func toResponse(m *dbmongo.Message) MessageResponse {
	return MessageResponse{
		ID:          m.IDHex(),
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		Content:     m.Content,
		Kind:        m.Kind,
		Media:       m.Media,
		PostRef:     m.PostRef,
		Read:        m.Read,
		Seen:        m.Seen,
		ReadAt:      m.ReadAt,
		ClientMsgID: m.ClientMsgID,
		CreatedAt:   m.CreatedAt,
	}
}

func queryInt64(r *http.Request, key string, def int64) int64 {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return def
	}
	return n
}
