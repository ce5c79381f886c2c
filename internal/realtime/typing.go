package realtime

import (
	"strings"

	"gosocial/internal/common"
)

// TypingRelay forwards typing indicators to the conversation scope. Nothing
// is stored and delivery is best-effort.
type TypingRelay struct {
	hub *Hub
}

func NewTypingRelay(hub *Hub) *TypingRelay {
	return &TypingRelay{hub: hub}
}

func (t *TypingRelay) Relay(s Session, peerID string, typing bool) error {
	peerID = strings.TrimSpace(peerID)
	if peerID == "" {
		return common.Validation(common.ReasonPeerRequired, "peerId is required")
	}
	if peerID == s.UserID() {
		return common.Validation(common.ReasonSelfMessage, "cannot type to yourself")
	}

	t.hub.SendToRoom(RoutingKey(s.UserID(), peerID), UserTyping{
		UserID:   s.UserID(),
		PeerID:   peerID,
		IsTyping: typing,
	}, s.ID())
	return nil
}
