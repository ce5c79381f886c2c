package dbmongo

import (
	"time"

	"gosocial/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const MessagesCollection = "messages"

// MediaRef points at a blob in the media bucket.
type MediaRef struct {
	FileID   string `bson:"file_id,omitempty" json:"fileId,omitempty"`
	URL      string `bson:"url" json:"url"`
	MimeType string `bson:"mime_type,omitempty" json:"mimeType,omitempty"`
}

type Message struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	SenderID    string             `bson:"sender_id"`
	ReceiverID  string             `bson:"receiver_id"`
	Content     string             `bson:"content"`
	Kind        common.MessageKind `bson:"kind"`
	Media       *MediaRef          `bson:"media,omitempty"`
	PostRef     string             `bson:"post_ref,omitempty"`
	Read        bool               `bson:"read"`
	Seen        bool               `bson:"seen"`
	ReadAt      *time.Time         `bson:"read_at,omitempty"`
	DeletedFor  []string           `bson:"deleted_for"`
	ClientMsgID string             `bson:"client_msg_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
}

func (m *Message) IDHex() string {
	return m.ID.Hex()
}

// HasParticipant reports whether userID is the sender or the receiver.
func (m *Message) HasParticipant(userID string) bool {
	return userID != "" && (m.SenderID == userID || m.ReceiverID == userID)
}

// PeerOf returns the other participant, or "" if userID is not one.
func (m *Message) PeerOf(userID string) string {
	switch userID {
	case m.SenderID:
		return m.ReceiverID
	case m.ReceiverID:
		return m.SenderID
	}
	return ""
}

func (m *Message) IsDeleted() bool {
	return m.Kind == common.MessageKindDeleted
}

func (m *Message) DeletedForUser(userID string) bool {
	for _, id := range m.DeletedFor {
		if id == userID {
			return true
		}
	}
	return false
}

// Redact clears everything a redacted message must not carry.
func (m *Message) Redact() {
	m.Content = ""
	m.Media = nil
	m.PostRef = ""
	m.Kind = common.MessageKindDeleted
}
