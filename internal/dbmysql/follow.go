package dbmysql

import (
	"time"
)

// Follow is a directed edge: FollowerID follows FollowedID.
type Follow struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	FollowerID string    `gorm:"column:follower_id;size:36;not null;index:idx_follower_followed,unique" json:"follower_id"`
	FollowedID string    `gorm:"column:followed_id;size:36;not null;index:idx_follower_followed,unique;index" json:"followed_id"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
