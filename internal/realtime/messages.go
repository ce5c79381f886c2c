package realtime

import (
	"context"
	"strings"
	"time"

	"gosocial/internal/chat/service"
	"gosocial/internal/common"
	"gosocial/internal/dbmysql"
	"gosocial/internal/notif"

	"go.uber.org/zap"
)

// MessageRouter persists a message and then fans it out. Nothing is delivered
// when the write fails.
type MessageRouter struct {
	chat     service.ChatService
	hub      *Hub
	notifier common.Notifier
	logger   *zap.Logger
}

func NewMessageRouter(chat service.ChatService, hub *Hub, notifier common.Notifier, logger *zap.Logger) *MessageRouter {
	return &MessageRouter{chat: chat, hub: hub, notifier: notifier, logger: logger}
}

func (r *MessageRouter) Send(ctx context.Context, s Session, req SendMessageRequest) error {
	sent, err := r.chat.SendMessage(ctx, s.UserID(), req.Draft(), req.ClientMsgID)
	if err != nil {
		return err
	}

	payload := NewMessagePayload(sent.Message)
	payload.Sender = summaryOf(sent.Sender)
	payload.Receiver = summaryOf(sent.Receiver)

	delivered := r.hub.SendToUser(sent.Message.ReceiverID, ReceiveMessage{payload})
	if delivered == 0 && r.notifier != nil {
		handle := s.Handle()
		if payload.Sender != nil && payload.Sender.Handle != "" {
			handle = payload.Sender.Handle
		}
		r.notifier.NotifyAsync(notif.MessageNotification(
			sent.Message.ReceiverID,
			sent.Message.SenderID,
			handle,
			payload.ID,
			sent.Message.Kind,
			sent.Message.Content,
		))
	}

	r.hub.Deliver(s, MessageSent{payload})

	r.logger.Debug("message routed",
		zap.String("messageID", payload.ID),
		zap.String("senderID", payload.SenderID),
		zap.String("receiverID", payload.ReceiverID),
		zap.Int("delivered", delivered))
	return nil
}

func summaryOf(u *dbmysql.User) *common.UserSummary {
	if u == nil {
		return nil
	}
	return &common.UserSummary{
		ID:          u.UserID,
		Handle:      u.Handle,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
	}
}

// DeliveryTracker moves messages to read and seen and tells the sender.
type DeliveryTracker struct {
	chat service.ChatService
	hub  *Hub
	now  func() time.Time
}

func NewDeliveryTracker(chat service.ChatService, hub *Hub) *DeliveryTracker {
	return &DeliveryTracker{
		chat: chat,
		hub:  hub,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (t *DeliveryTracker) MarkRead(ctx context.Context, s Session, messageID string) error {
	msg, err := t.chat.MarkRead(ctx, s.UserID(), messageID)
	if err != nil {
		return err
	}

	readAt := t.now()
	if msg.ReadAt != nil {
		readAt = *msg.ReadAt
	}
	t.hub.SendToUser(msg.SenderID, MessageRead{
		MessageID:  msg.IDHex(),
		ReaderID:   s.UserID(),
		RoutingKey: RoutingKey(msg.SenderID, msg.ReceiverID),
		ReadAt:     readAt,
	})
	return nil
}

// MarkSeen flags everything senderID sent to the caller as seen. The sender
// is told even when nothing changed.
func (t *DeliveryTracker) MarkSeen(ctx context.Context, s Session, req MessageSeenRequest) error {
	senderID, receiverID := strings.TrimSpace(req.SenderID), strings.TrimSpace(req.ReceiverID)

	count, err := t.chat.MarkSeen(ctx, s.UserID(), senderID, receiverID)
	if err != nil {
		return err
	}

	t.hub.SendToUser(senderID, MessagesSeen{
		ReceiverID: receiverID,
		SenderID:   senderID,
		RoutingKey: RoutingKey(senderID, receiverID),
		Count:      count,
		TS:         t.now(),
	})
	return nil
}

// DeletionHandler applies tombstones and redactions.
type DeletionHandler struct {
	chat   service.ChatService
	hub    *Hub
	logger *zap.Logger
}

func NewDeletionHandler(chat service.ChatService, hub *Hub, logger *zap.Logger) *DeletionHandler {
	return &DeletionHandler{chat: chat, hub: hub, logger: logger}
}

// ForMe hides a message from the requester only. The peer is never told.
func (h *DeletionHandler) ForMe(ctx context.Context, s Session, messageID string) error {
	msg, err := h.chat.DeleteForMe(ctx, s.UserID(), messageID)
	if err != nil {
		return err
	}
	h.hub.SendToUser(s.UserID(), MessageDeletedForMe{MessageID: msg.IDHex()})
	return nil
}

// ForEveryone redacts a message. The peer is resolved from the stored
// message, never from the client.
func (h *DeletionHandler) ForEveryone(ctx context.Context, s Session, req DeleteForEveryoneRequest) error {
	red, err := h.chat.DeleteForEveryone(ctx, s.UserID(), req.MessageID)
	if err != nil {
		return err
	}

	msg := red.Message
	peerID := msg.PeerOf(s.UserID())
	if claimed := strings.TrimSpace(req.PeerID); claimed != "" && claimed != peerID {
		h.logger.Debug("ignoring client peer id",
			zap.String("messageID", msg.IDHex()),
			zap.String("claimed", claimed),
			zap.String("stored", peerID))
	}

	h.hub.SendToUser(s.UserID(), MessageDeletedForEveryone{
		MessageID:      msg.IDHex(),
		AlreadyDeleted: red.AlreadyDeleted,
	})
	if red.AlreadyDeleted {
		return nil
	}

	h.hub.SendToUser(peerID, MessageDeleted{
		MessageID:  msg.IDHex(),
		Kind:       common.MessageKindDeleted,
		RoutingKey: RoutingKey(msg.SenderID, msg.ReceiverID),
	})
	return nil
}
