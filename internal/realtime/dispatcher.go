package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/user"

	"go.uber.org/zap"
)

const defaultHandlerTimeout = 15 * time.Second

// Dispatcher decodes inbound frames and calls the owning component. Each
// handler runs on its own context so a disconnect does not abort a write
// that is already in flight.
type Dispatcher struct {
	rooms     *Rooms
	hub       *Hub
	router    *MessageRouter
	delivery  *DeliveryTracker
	deletion  *DeletionHandler
	typing    *TypingRelay
	relations *RelationshipRelay
	metrics   *Metrics
	timeout   time.Duration
	logger    *zap.Logger
}

type DispatcherDeps struct {
	Rooms     *Rooms
	Hub       *Hub
	Router    *MessageRouter
	Delivery  *DeliveryTracker
	Deletion  *DeletionHandler
	Typing    *TypingRelay
	Relations *RelationshipRelay
	Metrics   *Metrics
}

func NewDispatcher(deps DispatcherDeps, timeout time.Duration, logger *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	return &Dispatcher{
		rooms:     deps.Rooms,
		hub:       deps.Hub,
		router:    deps.Router,
		delivery:  deps.Delivery,
		deletion:  deps.Deletion,
		typing:    deps.Typing,
		relations: deps.Relations,
		metrics:   deps.Metrics,
		timeout:   timeout,
		logger:    logger,
	}
}

// eventRef carries request identifiers into error events.
type eventRef struct {
	messageID    string
	clientMsgID  string
	targetUserID string
}

func (d *Dispatcher) Dispatch(s Session, f Frame) {
	started := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	var ref eventRef
	err := d.route(ctx, s, f, &ref)

	label := f.Event
	if !knownEvent(f.Event) {
		label = "unknown"
	}
	d.metrics.observeEvent(label, started)

	if err != nil {
		d.metrics.eventError(label, common.ReasonOf(err))
		d.reportError(s, f.Event, ref, err)
	}
}

func (d *Dispatcher) route(ctx context.Context, s Session, f Frame, ref *eventRef) error {
	switch f.Event {
	case EventAuth:
		// Already authenticated; a repeated auth frame is ignored.
		return nil

	case EventJoinRoom:
		var req RoomRequest
		if err := decode(f.Data, &req); err != nil {
			return err
		}
		a, b, _ := ParseRoutingKey(req.RoutingKey)
		if s.UserID() != a && s.UserID() != b {
			return common.Forbidden(common.ReasonForeignRoutingKey, "cannot join a conversation you are not part of")
		}
		d.rooms.Join(s, req.RoutingKey)
		return nil

	case EventLeaveRoom:
		var req RoomRequest
		if err := decode(f.Data, &req); err != nil {
			return err
		}
		d.rooms.Leave(s.ID(), req.RoutingKey)
		return nil

	case EventSendMessage:
		var req SendMessageRequest
		err := decode(f.Data, &req)
		ref.clientMsgID = req.ClientMsgID
		if err != nil {
			return err
		}
		return d.router.Send(ctx, s, req)

	case EventMarkMessageRead:
		var req MessageIDRequest
		err := decode(f.Data, &req)
		ref.messageID = req.MessageID
		if err != nil {
			return err
		}
		return d.delivery.MarkRead(ctx, s, req.MessageID)

	case EventMessageSeen:
		var req MessageSeenRequest
		if err := decode(f.Data, &req); err != nil {
			return err
		}
		return d.delivery.MarkSeen(ctx, s, req)

	case EventTypingStart, EventTypingStop:
		var req TypingRequest
		if err := decode(f.Data, &req); err != nil {
			return err
		}
		return d.typing.Relay(s, req.PeerID, f.Event == EventTypingStart)

	case EventDeleteMessageForMe:
		var req MessageIDRequest
		err := decode(f.Data, &req)
		ref.messageID = req.MessageID
		if err != nil {
			return err
		}
		return d.deletion.ForMe(ctx, s, req.MessageID)

	case EventDeleteMessageForEveryone:
		var req DeleteForEveryoneRequest
		err := decode(f.Data, &req)
		ref.messageID = req.MessageID
		if err != nil {
			return err
		}
		return d.deletion.ForEveryone(ctx, s, req)

	case EventFollowUser, EventUnfollowUser:
		var req FollowRequest
		err := decode(f.Data, &req)
		ref.targetUserID = req.TargetUserID
		if err != nil {
			return err
		}
		action := user.ActionFollow
		if f.Event == EventUnfollowUser {
			action = user.ActionUnfollow
		}
		return d.relations.Apply(ctx, s, action, req.TargetUserID)

	default:
		return common.Validation(common.ReasonUnknownEvent, fmt.Sprintf("unknown event %q", f.Event))
	}
}

// reportError answers the initiating connection only.
func (d *Dispatcher) reportError(s Session, event string, ref eventRef, err error) {
	logger := d.logger.With(
		zap.String("userID", s.UserID()),
		zap.String("connectionID", s.ID()),
		zap.String("event", event),
	)
	if common.KindOf(err) == common.KindInfrastructure {
		logger.Error("event handler failed", zap.Error(err))
	} else {
		logger.Debug("event rejected", zap.String("reason", common.ReasonOf(err)))
	}

	reason, message := common.ReasonOf(err), common.PublicMessage(err)

	var ev ServerEvent
	switch event {
	case EventSendMessage, EventMarkMessageRead, EventMessageSeen,
		EventDeleteMessageForMe, EventDeleteMessageForEveryone:
		ev = MessageError{
			Op:          event,
			Reason:      reason,
			Message:     message,
			MessageID:   ref.messageID,
			ClientMsgID: ref.clientMsgID,
		}
	case EventFollowUser, EventUnfollowUser:
		ev = FollowError{
			Op:           event,
			Reason:       reason,
			Message:      message,
			TargetUserID: ref.targetUserID,
		}
	default:
		ev = ErrorEvent{Op: event, Reason: reason, Message: message}
	}
	d.hub.Deliver(s, ev)
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) > 0 {
		if err := json.Unmarshal(data, v); err != nil {
			return common.Validation(common.ReasonMalformedPayload, "payload could not be decoded")
		}
	}
	if val, ok := v.(interface{ Validate() error }); ok {
		return val.Validate()
	}
	return nil
}

func knownEvent(event string) bool {
	switch event {
	case EventAuth, EventJoinRoom, EventLeaveRoom, EventSendMessage, EventMarkMessageRead,
		EventMessageSeen, EventTypingStart, EventTypingStop, EventDeleteMessageForMe,
		EventDeleteMessageForEveryone, EventFollowUser, EventUnfollowUser:
		return true
	}
	return false
}
