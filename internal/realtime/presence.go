package realtime

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
)

const presenceStripes = 256

// PresenceStore persists the online flag of a user.
type PresenceStore interface {
	SetOnline(ctx context.Context, userID string, online bool) error
}

// Presence announces online/offline transitions. Transitions of one user
// are serialized so the persisted flag follows registry order.
type Presence struct {
	hub      *Hub
	registry *Registry
	store    PresenceStore
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
	stripes  [presenceStripes]sync.Mutex
}

func NewPresence(hub *Hub, registry *Registry, store PresenceStore, metrics *Metrics, logger *zap.Logger) *Presence {
	return &Presence{
		hub:      hub,
		registry: registry,
		store:    store,
		metrics:  metrics,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (p *Presence) lock(userID string) *sync.Mutex {
	return &p.stripes[xxhash.Sum64String(userID)%presenceStripes]
}

// Connect registers s and, on the user's first connection, marks them online
// and tells every connection, s included. s is greeted with authenticated
// and then always receives the current online list.
func (p *Presence) Connect(ctx context.Context, s Session, limit int) error {
	mu := p.lock(s.UserID())
	mu.Lock()
	first, err := p.registry.Register(s, limit)
	if err != nil {
		mu.Unlock()
		return err
	}
	p.metrics.connOpened()
	p.hub.Deliver(s, Authenticated{UserID: s.UserID(), ConnectionID: s.ID()})
	if first {
		p.persist(ctx, s.UserID(), true)
		p.hub.Broadcast(UserOnline{UserID: s.UserID(), TS: p.now()}, "")
	}
	mu.Unlock()

	p.metrics.setOnlineUsers(len(p.registry.OnlineUsers()))
	p.hub.Deliver(s, OnlineUsersList{UserIDs: p.registry.OnlineUsers()})
	return nil
}

// Disconnect unregisters s and, if it was the user's last connection, marks
// them offline and tells everyone.
func (p *Presence) Disconnect(ctx context.Context, s Session) {
	mu := p.lock(s.UserID())
	mu.Lock()
	defer mu.Unlock()

	if !p.registry.Contains(s.UserID(), s.ID()) {
		return
	}
	last := p.registry.Unregister(s.UserID(), s.ID())
	p.metrics.connClosed()
	if !last {
		return
	}

	p.persist(ctx, s.UserID(), false)
	p.hub.Broadcast(UserOffline{UserID: s.UserID(), TS: p.now()}, "")
	p.metrics.setOnlineUsers(len(p.registry.OnlineUsers()))
}

func (p *Presence) persist(ctx context.Context, userID string, online bool) {
	if p.store == nil {
		return
	}
	if err := p.store.SetOnline(ctx, userID, online); err != nil && !errors.Is(err, context.Canceled) {
		p.metrics.presenceFailure()
		p.logger.Error("failed to persist presence",
			zap.String("userID", userID),
			zap.Bool("online", online),
			zap.Error(err))
	}
}
