package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"gosocial/internal/chat/repository"
	"gosocial/internal/chat/service"
	"gosocial/internal/common"
	"gosocial/internal/dbmongo"
	"gosocial/internal/dbmysql"
	"gosocial/internal/user"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeSession struct {
	id     string
	userID string
	handle string

	mu          sync.Mutex
	events      []ServerEvent
	full        bool
	closed      bool
	closeCode   int
	closeReason string

	// onSend runs before an event is queued.
	onSend func(ev ServerEvent)
}

func newFakeSession(userID, id string) *fakeSession {
	return &fakeSession{id: id, userID: userID, handle: "@" + userID}
}

func (f *fakeSession) ID() string     { return f.id }
func (f *fakeSession) UserID() string { return f.userID }
func (f *fakeSession) Handle() string { return f.handle }

func (f *fakeSession) Send(ev ServerEvent) error {
	if f.onSend != nil {
		f.onSend(ev)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrConnClosed
	}
	if f.full {
		return ErrSlowConsumer
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakeSession) Close(code int, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	f.closeCode = code
	f.closeReason = reason
}

func (f *fakeSession) received() []ServerEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ServerEvent(nil), f.events...)
}

func (f *fakeSession) named(name string) []ServerEvent {
	var out []ServerEvent
	for _, ev := range f.received() {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}

func (f *fakeSession) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = nil
}

// memStore is an in-memory MessageStore with the same flag semantics as the
// Mongo store.
type memStore struct {
	mu        sync.Mutex
	messages  map[string]*dbmongo.Message
	order     []string
	createErr error
	committed []string
}

func newMemStore() *memStore {
	return &memStore{messages: make(map[string]*dbmongo.Message)}
}

func clone(m *dbmongo.Message) *dbmongo.Message {
	c := *m
	c.DeletedFor = append([]string{}, m.DeletedFor...)
	if m.Media != nil {
		media := *m.Media
		c.Media = &media
	}
	return &c
}

func (s *memStore) Create(_ context.Context, msg *dbmongo.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return s.createErr
	}
	msg.ID = primitive.NewObjectID()
	msg.CreatedAt = time.Now().UTC()
	msg.DeletedFor = []string{}
	s.messages[msg.IDHex()] = clone(msg)
	s.order = append(s.order, msg.IDHex())
	s.committed = append(s.committed, msg.IDHex())
	return nil
}

func (s *memStore) has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.messages[id]
	return ok
}

func (s *memStore) commits() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.committed...)
}

func (s *memStore) FindByID(_ context.Context, id string) (*dbmongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	return clone(m), nil
}

func (s *memStore) UpdateFlags(_ context.Context, id string, u repository.FlagUpdate) (*dbmongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	if u.Read {
		m.Read = true
		if m.ReadAt == nil {
			now := time.Now().UTC()
			m.ReadAt = &now
		}
	}
	if u.Seen {
		m.Seen = true
	}
	if u.Deleted {
		if m.IsDeleted() {
			return nil, repository.ErrAlreadyRedacted
		}
		m.Redact()
	}
	return clone(m), nil
}

func (s *memStore) AddTombstone(_ context.Context, id, userID string) (*dbmongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, repository.ErrMessageNotFound
	}
	if !m.DeletedForUser(userID) {
		m.DeletedFor = append(m.DeletedFor, userID)
	}
	return clone(m), nil
}

func (s *memStore) MarkSeen(_ context.Context, senderID, receiverID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.SenderID != senderID || m.ReceiverID != receiverID || m.Seen {
			continue
		}
		m.Seen = true
		m.Read = true
		if m.ReadAt == nil {
			now := time.Now().UTC()
			m.ReadAt = &now
		}
		n++
	}
	return n, nil
}

func (s *memStore) FindConversation(_ context.Context, a, b string, q repository.ConversationQuery) ([]*dbmongo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*dbmongo.Message
	for _, id := range s.order {
		m, ok := s.messages[id]
		if !ok || !m.HasParticipant(a) || m.PeerOf(a) != b {
			continue
		}
		if q.ExcludeDeletedFor != "" && m.DeletedForUser(q.ExcludeDeletedFor) {
			continue
		}
		out = append(out, clone(m))
	}
	return out, nil
}

func (s *memStore) CountMediaRefs(_ context.Context, fileID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, m := range s.messages {
		if m.Media != nil && m.Media.FileID == fileID {
			n++
		}
	}
	return n, nil
}

func (s *memStore) ClearConversation(_ context.Context, a, b string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, m := range s.messages {
		if m.HasParticipant(a) && m.PeerOf(a) == b {
			delete(s.messages, id)
			n++
		}
	}
	return n, nil
}

func (s *memStore) get(t *testing.T, id string) *dbmongo.Message {
	t.Helper()
	m, err := s.FindByID(context.Background(), id)
	require.NoError(t, err)
	return m
}

// memMedia records blob owners and purges.
type memMedia struct {
	mu      sync.Mutex
	owners  map[string]string
	deleted []string
}

func newMemMedia() *memMedia {
	return &memMedia{owners: make(map[string]string)}
}

func (m *memMedia) upload(fileID, ownerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[fileID] = ownerID
}

func (m *memMedia) FileOwner(_ context.Context, fileID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[fileID]
	if !ok {
		return "", common.NotFound(common.ReasonMediaNotFound, "media not found")
	}
	return owner, nil
}

func (m *memMedia) DeleteFile(_ context.Context, fileID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.owners, fileID)
	m.deleted = append(m.deleted, fileID)
	return nil
}

func (m *memMedia) purged() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

// memUsers is an in-memory user directory with follow edges.
type memUsers struct {
	mu         sync.Mutex
	users      map[string]*dbmysql.User
	follows    map[[2]string]bool
	online     map[string]bool
	onlineLog  []string
	setOnlineE error
}

func newMemUsers(ids ...string) *memUsers {
	u := &memUsers{
		users:   make(map[string]*dbmysql.User),
		follows: make(map[[2]string]bool),
		online:  make(map[string]bool),
	}
	for _, id := range ids {
		u.users[id] = &dbmysql.User{UserID: id, Handle: "@" + id, DisplayName: "User " + id, Status: "active"}
	}
	return u
}

func (u *memUsers) FindByID(_ context.Context, userID string) (*dbmysql.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if usr, ok := u.users[userID]; ok {
		c := *usr
		return &c, nil
	}
	return nil, nil
}

func (u *memUsers) SetOnline(_ context.Context, userID string, online bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if online {
		u.onlineLog = append(u.onlineLog, userID+":online")
	} else {
		u.onlineLog = append(u.onlineLog, userID+":offline")
	}
	if u.setOnlineE != nil {
		return u.setOnlineE
	}
	u.online[userID] = online
	return nil
}

func (u *memUsers) Follow(_ context.Context, followerID, followedID string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := [2]string{followerID, followedID}
	if u.follows[key] {
		return false, nil
	}
	u.follows[key] = true
	return true, nil
}

func (u *memUsers) Unfollow(_ context.Context, followerID, followedID string) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	key := [2]string{followerID, followedID}
	if !u.follows[key] {
		return false, nil
	}
	delete(u.follows, key)
	return true, nil
}

func (u *memUsers) presenceLog() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.onlineLog...)
}

var _ user.UserRepository = (*memUsers)(nil)

type recordingNotifier struct {
	mu     sync.Mutex
	events []common.NotificationEvent
}

func (n *recordingNotifier) NotifyAsync(event common.NotificationEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
}

func (n *recordingNotifier) all() []common.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]common.NotificationEvent(nil), n.events...)
}

// harness wires every component the way the service does, on fakes.
type harness struct {
	registry   *Registry
	rooms      *Rooms
	hub        *Hub
	presence   *Presence
	store      *memStore
	media      *memMedia
	users      *memUsers
	notifier   *recordingNotifier
	dispatcher *Dispatcher
}

func newHarness(t *testing.T, userIDs ...string) *harness {
	t.Helper()
	logger := zap.NewNop()

	h := &harness{
		registry: NewRegistry(),
		rooms:    NewRooms(),
		store:    newMemStore(),
		media:    newMemMedia(),
		users:    newMemUsers(userIDs...),
		notifier: &recordingNotifier{},
	}
	h.hub = NewHub(h.registry, h.rooms, nil, logger)

	users := user.NewUserService(h.users)
	h.presence = NewPresence(h.hub, h.registry, users, nil, logger)

	chat := service.NewChatService(h.store, users, h.media, logger)
	h.dispatcher = NewDispatcher(DispatcherDeps{
		Rooms:     h.rooms,
		Hub:       h.hub,
		Router:    NewMessageRouter(chat, h.hub, h.notifier, logger),
		Delivery:  NewDeliveryTracker(chat, h.hub),
		Deletion:  NewDeletionHandler(chat, h.hub, logger),
		Typing:    NewTypingRelay(h.hub),
		Relations: NewRelationshipRelay(users, h.hub, h.notifier),
	}, time.Second, logger)
	return h
}

func (h *harness) connect(t *testing.T, userID, connID string) *fakeSession {
	t.Helper()
	s := newFakeSession(userID, connID)
	require.NoError(t, h.presence.Connect(context.Background(), s, 0))
	return s
}

func (h *harness) emit(t *testing.T, s Session, event string, data interface{}) {
	t.Helper()
	var raw json.RawMessage
	if data != nil {
		b, err := json.Marshal(data)
		require.NoError(t, err)
		raw = b
	}
	h.dispatcher.Dispatch(s, Frame{Event: event, Data: raw})
}

// sendText sends a text message from s and returns the persisted id.
func (h *harness) sendText(t *testing.T, s *fakeSession, receiverID, content string) string {
	t.Helper()
	before := len(s.named("message_sent"))
	h.emit(t, s, EventSendMessage, map[string]interface{}{"receiverId": receiverID, "content": content})
	sent := s.named("message_sent")
	require.Len(t, sent, before+1, "message_sent expected, got %v", s.received())
	return sent[len(sent)-1].(MessageSent).ID
}

var errStoreDown = errors.New("store down")
