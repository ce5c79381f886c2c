package user

import (
	"context"
	"errors"
	"time"

	"gosocial/internal/dbmysql"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

//go:generate mockgen -destination=mock_user_repository.go -package=user gosocial/internal/user UserRepository

// UserRepository is the user directory plus follow edges.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (*dbmysql.User, error)
	SetOnline(ctx context.Context, userID string, online bool) error
	Follow(ctx context.Context, followerID, followedID string) (bool, error)
	Unfollow(ctx context.Context, followerID, followedID string) (bool, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindByID returns (nil, nil) when no active user has that id.
func (r *userRepository) FindByID(ctx context.Context, userID string) (*dbmysql.User, error) {
	var user dbmysql.User
	err := r.db.WithContext(ctx).Where("user_id = ? AND status = ?", userID, "active").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) SetOnline(ctx context.Context, userID string, online bool) error {
	return r.db.WithContext(ctx).
		Model(&dbmysql.User{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"is_online":    online,
			"last_seen_at": time.Now(),
		}).Error
}

// Follow inserts the edge. It reports false if the edge already existed.
func (r *userRepository) Follow(ctx context.Context, followerID, followedID string) (bool, error) {
	follow := &dbmysql.Follow{FollowerID: followerID, FollowedID: followedID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(follow)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Unfollow removes the edge. It reports false if there was none.
func (r *userRepository) Unfollow(ctx context.Context, followerID, followedID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&dbmysql.Follow{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
