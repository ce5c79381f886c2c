package common

import (
	"time"
)

type NotificationType string

const (
	MessageType NotificationType = "message"
	FollowType  NotificationType = "follow"
)

type NotificationStatus string

const (
	StatusPending NotificationStatus = "pending"
	StatusRead    NotificationStatus = "read"
)

type NotificationMetadata map[string]interface{}

// NotificationEvent is queued for a user who was not reachable in real time.
type NotificationEvent struct {
	Type          NotificationType
	UserID        string
	TriggerUserID string
	Header        string
	Content       string
	Metadata      NotificationMetadata
	CreatedAt     time.Time
}

// UserSummary is the display projection of a user sent alongside messages.
type UserSummary struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}
