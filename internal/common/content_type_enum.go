package common

import "strings"

// MessageKind is the type of a direct message's payload.
type MessageKind string

const (
	MessageKindText       MessageKind = "text"
	MessageKindImage      MessageKind = "image"
	MessageKindVideo      MessageKind = "video"
	MessageKindSharedPost MessageKind = "shared_post"
	MessageKindDeleted    MessageKind = "deleted"
)

// String returns the string representation
func (k MessageKind) String() string {
	return string(k)
}

// IsValid reports whether a client may send a message of this kind.
// "deleted" is only ever produced by redaction.
func (k MessageKind) IsValid() bool {
	switch k {
	case MessageKindText, MessageKindImage, MessageKindVideo, MessageKindSharedPost:
		return true
	}
	return false
}

func (k MessageKind) RequiresContent() bool {
	return k == MessageKindText
}

func (k MessageKind) RequiresMedia() bool {
	return k == MessageKindImage || k == MessageKindVideo
}

// DetectMessageKind maps a media MIME type onto the message kind, falling back
// to image like the upload path does.
func DetectMessageKind(mimeType string) MessageKind {
	lowerMimeType := strings.ToLower(mimeType)
	if strings.HasPrefix(lowerMimeType, "video/") {
		return MessageKindVideo
	}
	return MessageKindImage
}
