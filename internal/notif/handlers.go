package notif

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/dbmysql"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type NotificationServiceInterface interface {
	GetUserNotifications(ctx context.Context, userID string, limit, offset int) ([]*dbmysql.Notification, int64, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) error
}

type NotificationResponse struct {
	ID            string                      `json:"id"`
	Type          string                      `json:"type"`
	Header        string                      `json:"header"`
	Content       string                      `json:"content"`
	Status        string                      `json:"status"`
	TriggerUserID string                      `json:"triggerUserId,omitempty"`
	Metadata      common.NotificationMetadata `json:"metadata,omitempty"`
	CreatedAt     time.Time                   `json:"createdAt"`
	ReadAt        *time.Time                  `json:"readAt,omitempty"`
}

type NotificationHandler struct {
	service NotificationServiceInterface
	logger  *zap.Logger
}

func NewNotificationHandler(service *NotificationService, logger *zap.Logger) *NotificationHandler {
	return newNotificationHandler(service, logger)
}

func newNotificationHandler(service NotificationServiceInterface, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, logger: logger}
}

// RegisterRoutes mounts the handlers on an authenticated router.
func (h *NotificationHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/notifications", h.List).Methods(http.MethodGet)
	r.HandleFunc("/notifications/{id}/read", h.MarkRead).Methods(http.MethodPost)
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, common.Unauthenticated(common.ReasonMissingToken, "authorization required", nil))
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	notifications, unread, err := h.service.GetUserNotifications(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("list notifications failed", zap.String("userID", userID), zap.Error(err))
		common.WriteError(w, common.StatusFor(err), err)
		return
	}

	responses := make([]NotificationResponse, len(notifications))
	for i, n := range notifications {
		responses[i] = NotificationResponse{
			ID:            n.ID,
			Type:          n.Type,
			Header:        n.Header,
			Content:       n.Content,
			Status:        n.Status,
			TriggerUserID: n.TriggerUserID,
			Metadata:      common.NotificationMetadata(n.Metadata),
			CreatedAt:     n.CreatedAt,
			ReadAt:        n.ReadAt,
		}
	}

	common.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": responses,
		"unread":        unread,
	})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID, ok := common.UserIDFromContext(r.Context())
	if !ok {
		common.WriteError(w, http.StatusUnauthorized, common.Unauthenticated(common.ReasonMissingToken, "authorization required", nil))
		return
	}

	if err := h.service.MarkAsRead(r.Context(), mux.Vars(r)["id"], userID); err != nil {
		common.WriteError(w, common.StatusFor(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func queryInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
