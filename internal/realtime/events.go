package realtime

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/dbmongo"
)

// Frame is the envelope of every websocket text frame, in both directions.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Inbound event names.
const (
	EventAuth                     = "auth"
	EventJoinRoom                 = "join_room"
	EventLeaveRoom                = "leave_room"
	EventSendMessage              = "send_message"
	EventMarkMessageRead          = "mark_message_read"
	EventMessageSeen              = "message_seen"
	EventTypingStart              = "typing_start"
	EventTypingStop               = "typing_stop"
	EventDeleteMessageForMe       = "delete_message_for_me"
	EventDeleteMessageForEveryone = "delete_message_for_everyone"
	EventFollowUser               = "follow_user"
	EventUnfollowUser             = "unfollow_user"
)

// ServerEvent is any event pushed to clients.
type ServerEvent interface {
	EventName() string
}

// Encode renders ev as a frame.
func Encode(ev ServerEvent) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: ev.EventName(), Data: data})
}

type Authenticated struct {
	UserID       string `json:"userId"`
	ConnectionID string `json:"connectionId"`
}

type OnlineUsersList struct {
	UserIDs []string `json:"userIds"`
}

type UserOnline struct {
	UserID string    `json:"userId"`
	TS     time.Time `json:"ts"`
}

type UserOffline struct {
	UserID string    `json:"userId"`
	TS     time.Time `json:"ts"`
}

// MessagePayload is the full client view of a message.
type MessagePayload struct {
	ID          string              `json:"id"`
	SenderID    string              `json:"senderId"`
	ReceiverID  string              `json:"receiverId"`
	RoutingKey  string              `json:"routingKey"`
	Content     string              `json:"content"`
	Kind        common.MessageKind  `json:"kind"`
	Media       *dbmongo.MediaRef   `json:"media,omitempty"`
	PostRef     string              `json:"postRef,omitempty"`
	Read        bool                `json:"read"`
	Seen        bool                `json:"seen"`
	ReadAt      *time.Time          `json:"readAt,omitempty"`
	ClientMsgID string              `json:"clientMsgId,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	Sender      *common.UserSummary `json:"sender,omitempty"`
	Receiver    *common.UserSummary `json:"receiver,omitempty"`
}

func NewMessagePayload(m *dbmongo.Message) MessagePayload {
	return MessagePayload{
		ID:          m.IDHex(),
		SenderID:    m.SenderID,
		ReceiverID:  m.ReceiverID,
		RoutingKey:  RoutingKey(m.SenderID, m.ReceiverID),
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

type ReceiveMessage struct{ MessagePayload }

type MessageSent struct{ MessagePayload }

type MessageRead struct {
	MessageID  string    `json:"messageId"`
	ReaderID   string    `json:"readerId"`
	RoutingKey string    `json:"routingKey"`
	ReadAt     time.Time `json:"readAt"`
}

type MessagesSeen struct {
	ReceiverID string    `json:"receiverId"`
	SenderID   string    `json:"senderId"`
	RoutingKey string    `json:"routingKey"`
	Count      int64     `json:"count"`
	TS         time.Time `json:"ts"`
}

type UserTyping struct {
	UserID   string `json:"userId"`
	PeerID   string `json:"peerId"`
	IsTyping bool   `json:"isTyping"`
}

type MessageDeletedForMe struct {
	MessageID string `json:"messageId"`
}

type MessageDeletedForEveryone struct {
	MessageID      string `json:"messageId"`
	AlreadyDeleted bool   `json:"alreadyDeleted,omitempty"`
}

type MessageDeleted struct {
	MessageID  string             `json:"messageId"`
	Kind       common.MessageKind `json:"kind"`
	RoutingKey string             `json:"routingKey"`
}

type FollowStatusChanged struct {
	FollowerID string `json:"followerId"`
	FollowedID string `json:"followedId"`
	Action     string `json:"action"`
}

// MessageError answers a failed message operation to the initiating connection.
type MessageError struct {
	Op          string `json:"op"`
	Reason      string `json:"reason"`
	Message     string `json:"message"`
	MessageID   string `json:"messageId,omitempty"`
	ClientMsgID string `json:"clientMsgId,omitempty"`
}

type FollowError struct {
	Op           string `json:"op"`
	Reason       string `json:"reason"`
	Message      string `json:"message"`
	TargetUserID string `json:"targetUserId,omitempty"`
}

// ErrorEvent answers failures of events that are not message or follow operations.
type ErrorEvent struct {
	Op      string `json:"op"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (Authenticated) EventName() string             { return "authenticated" }
func (OnlineUsersList) EventName() string           { return "online_users_list" }
func (UserOnline) EventName() string                { return "user_online" }
func (UserOffline) EventName() string               { return "user_offline" }
func (ReceiveMessage) EventName() string            { return "receive_message" }
func (MessageSent) EventName() string               { return "message_sent" }
func (MessageRead) EventName() string               { return "message_read" }
func (MessagesSeen) EventName() string              { return "messages_seen" }
func (UserTyping) EventName() string                { return "user_typing" }
func (MessageDeletedForMe) EventName() string       { return "message_deleted_for_me" }
func (MessageDeletedForEveryone) EventName() string { return "message_deleted_for_everyone" }
func (MessageDeleted) EventName() string            { return "message_deleted" }
func (FollowStatusChanged) EventName() string       { return "follow_status_changed" }
func (MessageError) EventName() string              { return "message_error" }
func (FollowError) EventName() string               { return "follow_error" }
func (ErrorEvent) EventName() string                { return "error" }

// Inbound payloads.

type AuthRequest struct {
	Token string `json:"token"`
}

// RoomRequest is the payload of join_room and leave_room.
type RoomRequest struct {
	RoutingKey string `json:"routingKey"`
}

func (r *RoomRequest) UnmarshalJSON(b []byte) error {
	type plain RoomRequest
	return unmarshalBareString(b, &r.RoutingKey, (*plain)(r))
}

func (r RoomRequest) Validate() error {
	if _, _, ok := ParseRoutingKey(r.RoutingKey); !ok {
		return common.Validation(common.ReasonInvalidRoutingKey, "routingKey must be two distinct ids joined by ':' in sorted order")
	}
	return nil
}

type MediaInput struct {
	FileID   string `json:"fileId"`
	URL      string `json:"url"`
	MimeType string `json:"mimeType"`
}

type SendMessageRequest struct {
	ReceiverID  string             `json:"receiverId"`
	Content     string             `json:"content"`
	Kind        common.MessageKind `json:"kind"`
	Media       *MediaInput        `json:"media,omitempty"`
	PostRef     string             `json:"postRef,omitempty"`
	ClientMsgID string             `json:"clientMsgId,omitempty"`
}

func (r SendMessageRequest) Draft() common.MessageDraft {
	d := common.MessageDraft{
		ReceiverID: r.ReceiverID,
		Content:    r.Content,
		Kind:       common.MessageKind(strings.ToLower(string(r.Kind))),
		PostRef:    r.PostRef,
	}
	if r.Media != nil {
		d.MediaURL = r.Media.URL
		d.MediaMime = r.Media.MimeType
		d.MediaFileID = r.Media.FileID
	}
	return d
}

type MessageIDRequest struct {
	MessageID string `json:"messageId"`
}

func (r *MessageIDRequest) UnmarshalJSON(b []byte) error {
	type plain MessageIDRequest
	return unmarshalBareString(b, &r.MessageID, (*plain)(r))
}

func (r MessageIDRequest) Validate() error {
	if strings.TrimSpace(r.MessageID) == "" {
		return common.Validation(common.ReasonMessageIDRequired, "messageId is required")
	}
	return nil
}

type MessageSeenRequest struct {
	SenderID   string `json:"senderId"`
	ReceiverID string `json:"receiverId"`
}

func (r MessageSeenRequest) Validate() error {
	if strings.TrimSpace(r.SenderID) == "" || strings.TrimSpace(r.ReceiverID) == "" {
		return common.Validation(common.ReasonParticipantMissing, "senderId and receiverId are required")
	}
	return nil
}

type TypingRequest struct {
	PeerID string `json:"peerId"`
}

func (r *TypingRequest) UnmarshalJSON(b []byte) error {
	type plain TypingRequest
	return unmarshalBareString(b, &r.PeerID, (*plain)(r))
}

func (r TypingRequest) Validate() error {
	if strings.TrimSpace(r.PeerID) == "" {
		return common.Validation(common.ReasonPeerRequired, "peerId is required")
	}
	return nil
}

type DeleteForEveryoneRequest struct {
	MessageID string `json:"messageId"`
	PeerID    string `json:"peerId"`
}

func (r DeleteForEveryoneRequest) Validate() error {
	return MessageIDRequest{MessageID: r.MessageID}.Validate()
}

type FollowRequest struct {
	TargetUserID string `json:"targetUserId"`
}

func (r *FollowRequest) UnmarshalJSON(b []byte) error {
	type plain FollowRequest
	return unmarshalBareString(b, &r.TargetUserID, (*plain)(r))
}

func (r FollowRequest) Validate() error {
	if strings.TrimSpace(r.TargetUserID) == "" {
		return common.Validation(common.ReasonTargetRequired, "targetUserId is required")
	}
	return nil
}

// unmarshalBareString accepts either a JSON object or a bare JSON string
// for single-field payloads.
func unmarshalBareString(b []byte, field *string, obj interface{}) error {
	trimmed := bytes.TrimSpace(b)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return json.Unmarshal(trimmed, field)
	}
	return json.Unmarshal(trimmed, obj)
}
