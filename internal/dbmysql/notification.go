package dbmysql

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gosocial/internal/common"
)

// Notification is an offline notice for a user who missed a realtime event.
type Notification struct {
	ID            string       `gorm:"primaryKey;size:36"`
	UserID        string       `gorm:"not null;index;size:36"`
	Header        string       `gorm:"not null;size:255"`
	Content       string       `gorm:"not null;type:text"`
	ReadAt        *time.Time
	Type          string       `gorm:"not null;size:50"`
	Status        string       `gorm:"default:'pending';size:50"`
	TriggerUserID string       `gorm:"size:36"`
	Metadata      JSONMetadata `gorm:"type:json"`
	CreatedAt     time.Time    `gorm:"autoCreateTime"`
	UpdatedAt     time.Time    `gorm:"autoUpdateTime"`
}

// JSONMetadata stores notification metadata in a JSON column.
type JSONMetadata common.NotificationMetadata

func (m JSONMetadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMetadata) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported metadata type %T", value)
	}
	return json.Unmarshal(raw, m)
}
