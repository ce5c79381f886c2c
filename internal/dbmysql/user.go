package dbmysql

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	UserID      string         `gorm:"primaryKey;column:user_id;size:36" json:"user_id"`
	Handle      string         `gorm:"column:handle;uniqueIndex;size:50;not null" json:"handle"`
	DisplayName string         `gorm:"column:display_name;size:100" json:"display_name"`
	AvatarURL   string         `gorm:"column:avatar_url;size:512" json:"avatar_url"`
	IsOnline    bool           `gorm:"column:is_online;not null;default:false;index" json:"is_online"`
	LastSeenAt  *time.Time     `gorm:"column:last_seen_at" json:"last_seen_at"`
	Status      string         `gorm:"column:status;type:enum('active','banned','deleted');default:'active'" json:"status"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
}
