package realtime

import (
	"context"

	"gosocial/internal/common"
	"gosocial/internal/notif"
	"gosocial/internal/user"
)

// FollowService mutates follow edges in the user directory.
type FollowService interface {
	Follow(ctx context.Context, followerID, targetID string) (*user.FollowChange, error)
	Unfollow(ctx context.Context, followerID, targetID string) (*user.FollowChange, error)
}

// RelationshipRelay tells both sides of a follow edge that it changed.
type RelationshipRelay struct {
	follows  FollowService
	hub      *Hub
	notifier common.Notifier
}

func NewRelationshipRelay(follows FollowService, hub *Hub, notifier common.Notifier) *RelationshipRelay {
	return &RelationshipRelay{follows: follows, hub: hub, notifier: notifier}
}

func (r *RelationshipRelay) Apply(ctx context.Context, s Session, action user.FollowAction, targetID string) error {
	var (
		change *user.FollowChange
		err    error
	)
	switch action {
	case user.ActionFollow:
		change, err = r.follows.Follow(ctx, s.UserID(), targetID)
	case user.ActionUnfollow:
		change, err = r.follows.Unfollow(ctx, s.UserID(), targetID)
	default:
		return common.Validation(common.ReasonUnknownEvent, "unknown follow action")
	}
	if err != nil {
		return err
	}

	ev := FollowStatusChanged{
		FollowerID: change.FollowerID,
		FollowedID: change.FollowedID,
		Action:     string(change.Action),
	}
	r.hub.SendToUser(change.FollowerID, ev)
	delivered := r.hub.SendToUser(change.FollowedID, ev)

	if delivered == 0 && change.Changed && change.Action == user.ActionFollow && r.notifier != nil {
		r.notifier.NotifyAsync(notif.FollowNotification(change.FollowedID, change.FollowerID, s.Handle()))
	}
	return nil
}
