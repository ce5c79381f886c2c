package common

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageContentLength bounds a single text message, in runes.
const MaxMessageContentLength = 4000

// MessageDraft is the client-supplied part of an outbound message.
type MessageDraft struct {
	ReceiverID  string
	Content     string
	Kind        MessageKind
	MediaURL    string
	MediaMime   string
	// MediaFileID is the media bucket id, when the blob is stored by us.
	MediaFileID string
	PostRef     string
}

// Normalize trims the draft and infers a kind when the client left it empty.
func (d *MessageDraft) Normalize() {
	d.ReceiverID = strings.TrimSpace(d.ReceiverID)
	d.PostRef = strings.TrimSpace(d.PostRef)
	d.MediaURL = strings.TrimSpace(d.MediaURL)
	if d.Kind == "" {
		switch {
		case d.MediaURL != "":
			d.Kind = DetectMessageKind(d.MediaMime)
		case d.PostRef != "":
			d.Kind = MessageKindSharedPost
		default:
			d.Kind = MessageKindText
		}
	}
}

// ValidateDraft checks a draft sent by senderID. Each failure has its own reason.
func ValidateDraft(senderID string, d MessageDraft) error {
	if d.ReceiverID == "" {
		return Validation(ReasonReceiverRequired, "receiverId is required")
	}
	if d.ReceiverID == senderID {
		return Validation(ReasonSelfMessage, "cannot send a message to yourself")
	}
	if !d.Kind.IsValid() {
		return Validation(ReasonInvalidKind, "unsupported message kind")
	}
	if d.Kind.RequiresContent() && strings.TrimSpace(d.Content) == "" {
		return Validation(ReasonEmptyContent, "message content cannot be empty")
	}
	if utf8.RuneCountInString(d.Content) > MaxMessageContentLength {
		return Validation(ReasonContentTooLong, "message content is too long")
	}
	if d.Kind.RequiresMedia() && d.MediaURL == "" {
		return Validation(ReasonMediaRequired, "media messages need a media reference")
	}
	if d.Kind == MessageKindSharedPost && d.PostRef == "" {
		return Validation(ReasonPostRefRequired, "shared posts need a post reference")
	}
	return nil
}
