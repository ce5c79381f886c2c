package realtime

import (
	"errors"

	"go.uber.org/zap"
)

// Hub fans events out to sessions. Delivery is fire-and-forget: a session
// whose buffer is full is closed and skipped, the rest still receive.
type Hub struct {
	registry *Registry
	rooms    *Rooms
	metrics  *Metrics
	logger   *zap.Logger
}

func NewHub(registry *Registry, rooms *Rooms, metrics *Metrics, logger *zap.Logger) *Hub {
	return &Hub{
		registry: registry,
		rooms:    rooms,
		metrics:  metrics,
		logger:   logger,
	}
}

// Deliver sends ev to one session and reports whether it was queued.
func (h *Hub) Deliver(s Session, ev ServerEvent) bool {
	err := s.Send(ev)
	switch {
	case err == nil:
		h.metrics.delivered(ev.EventName())
		return true
	case errors.Is(err, ErrSlowConsumer):
		h.metrics.slowConsumer()
		h.metrics.dropped(ev.EventName(), "slow_consumer")
		h.logger.Warn("closing slow consumer",
			zap.String("userID", s.UserID()),
			zap.String("connectionID", s.ID()),
			zap.String("event", ev.EventName()))
		s.Close(CloseSlowConsumer, "slow_consumer")
	case errors.Is(err, ErrConnClosed):
		h.metrics.dropped(ev.EventName(), "closed")
	default:
		h.metrics.dropped(ev.EventName(), "error")
		h.logger.Error("failed to queue event",
			zap.String("connectionID", s.ID()),
			zap.String("event", ev.EventName()),
			zap.Error(err))
	}
	return false
}

// SendToUser delivers ev to every live session of userID and returns how
// many accepted it.
func (h *Hub) SendToUser(userID string, ev ServerEvent) int {
	return h.deliverAll(h.registry.ConnectionsFor(userID), ev, "")
}

// Broadcast delivers ev to every live session except exceptConnID.
func (h *Hub) Broadcast(ev ServerEvent, exceptConnID string) int {
	return h.deliverAll(h.registry.All(), ev, exceptConnID)
}

// SendToRoom delivers ev to the members of key except exceptConnID.
func (h *Hub) SendToRoom(key string, ev ServerEvent, exceptConnID string) int {
	return h.deliverAll(h.rooms.Members(key), ev, exceptConnID)
}

func (h *Hub) deliverAll(sessions []Session, ev ServerEvent, exceptConnID string) int {
	n := 0
	for _, s := range sessions {
		if s.ID() == exceptConnID {
			continue
		}
		if h.Deliver(s, ev) {
			n++
		}
	}
	return n
}
