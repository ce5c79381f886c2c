package user

import (
	"context"
	"fmt"
	"strings"

	"gosocial/internal/common"
	"gosocial/internal/dbmysql"
)

type FollowAction string

const (
	ActionFollow   FollowAction = "follow"
	ActionUnfollow FollowAction = "unfollow"
)

// FollowChange describes a follow edge mutation. Changed is false when the
// edge was already in the requested state.
type FollowChange struct {
	FollowerID string
	FollowedID string
	Action     FollowAction
	Changed    bool
	Target     *dbmysql.User
}

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{repo: repo}
}

func (s *UserService) FindByID(ctx context.Context, userID string) (*dbmysql.User, error) {
	if userID == "" {
		return nil, nil
	}
	return s.repo.FindByID(ctx, userID)
}

func (s *UserService) SetOnline(ctx context.Context, userID string, online bool) error {
	if err := s.repo.SetOnline(ctx, userID, online); err != nil {
		return fmt.Errorf("failed to persist online=%t for %s: %w", online, userID, err)
	}
	return nil
}

func (s *UserService) Follow(ctx context.Context, followerID, targetID string) (*FollowChange, error) {
	target, err := s.resolveTarget(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}

	created, err := s.repo.Follow(ctx, followerID, target.UserID)
	if err != nil {
		return nil, common.Infrastructure("failed to follow user", err)
	}
	return &FollowChange{
		FollowerID: followerID,
		FollowedID: target.UserID,
		Action:     ActionFollow,
		Changed:    created,
		Target:     target,
	}, nil
}

func (s *UserService) Unfollow(ctx context.Context, followerID, targetID string) (*FollowChange, error) {
	target, err := s.resolveTarget(ctx, followerID, targetID)
	if err != nil {
		return nil, err
	}

	removed, err := s.repo.Unfollow(ctx, followerID, target.UserID)
	if err != nil {
		return nil, common.Infrastructure("failed to unfollow user", err)
	}
	return &FollowChange{
		FollowerID: followerID,
		FollowedID: target.UserID,
		Action:     ActionUnfollow,
		Changed:    removed,
		Target:     target,
	}, nil
}

func (s *UserService) resolveTarget(ctx context.Context, followerID, targetID string) (*dbmysql.User, error) {
	targetID = strings.TrimSpace(targetID)
	if targetID == "" {
		return nil, common.Validation(common.ReasonTargetRequired, "targetUserId is required")
	}
	if targetID == followerID {
		return nil, common.Validation(common.ReasonSelfFollow, "cannot follow yourself")
	}

	target, err := s.repo.FindByID(ctx, targetID)
	if err != nil {
		return nil, common.Infrastructure("failed to look up user", err)
	}
	if target == nil {
		return nil, common.NotFound(common.ReasonTargetNotFound, "user does not exist")
	}
	return target, nil
}
