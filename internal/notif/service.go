package notif

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"gosocial/internal/common"
	"gosocial/internal/config"
	"gosocial/internal/dbmysql"

	"go.uber.org/zap"
)

const previewLength = 80

type NotificationManager struct {
	observers    map[string]common.Observer
	eventChannel chan common.NotificationEvent
	workerPool   int
	logger       *zap.Logger
	ctx          context.Context
	cancel       context.CancelFunc
	mu           sync.RWMutex
	wg           sync.WaitGroup
	once         sync.Once
}

func NewNotificationManager(workerPoolSize, bufferSize int, logger *zap.Logger) *NotificationManager {
	ctx, cancel := context.WithCancel(context.Background())
	if workerPoolSize < 1 {
		workerPoolSize = 1
	}
	if bufferSize < 1 {
		bufferSize = 1
	}

	nm := &NotificationManager{
		observers:    make(map[string]common.Observer),
		eventChannel: make(chan common.NotificationEvent, bufferSize),
		workerPool:   workerPoolSize,
		logger:       logger,
		ctx:          ctx,
		cancel:       cancel,
	}

	for i := 0; i < workerPoolSize; i++ {
		nm.wg.Add(1)
		go nm.processEvents()
	}

	return nm
}

func (nm *NotificationManager) Subscribe(observer common.Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.observers[observer.Name()] = observer
	nm.logger.Debug("observer subscribed", zap.String("observer", observer.Name()))
}

func (nm *NotificationManager) Unsubscribe(observer common.Observer) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	delete(nm.observers, observer.Name())
	nm.logger.Debug("observer unsubscribed", zap.String("observer", observer.Name()))
}

func (nm *NotificationManager) Notify(event common.NotificationEvent) {
	nm.mu.RLock()
	observers := make([]common.Observer, 0, len(nm.observers))
	for _, obs := range nm.observers {
		observers = append(observers, obs)
	}
	nm.mu.RUnlock()

	for _, observer := range observers {
		if err := observer.Update(event); err != nil {
			nm.logger.Warn("observer update failed",
				zap.String("observer", observer.Name()),
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
}

// NotifyAsync never blocks. Events are dropped when the queue is full or the
// manager is shut down.
func (nm *NotificationManager) NotifyAsync(event common.NotificationEvent) {
	if nm.ctx.Err() != nil {
		return
	}
	select {
	case nm.eventChannel <- event:
	default:
		nm.logger.Warn("notification channel full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("userID", event.UserID))
	}
}

func (nm *NotificationManager) processEvents() {
	defer nm.wg.Done()

	for {
		select {
		case event := <-nm.eventChannel:
			nm.Notify(event)
		case <-nm.ctx.Done():
			nm.drain()
			return
		}
	}
}

// drain delivers whatever is still queued at shutdown.
func (nm *NotificationManager) drain() {
	for {
		select {
		case event := <-nm.eventChannel:
			nm.Notify(event)
		default:
			return
		}
	}
}

func (nm *NotificationManager) Shutdown() {
	nm.once.Do(func() {
		nm.cancel()
		nm.wg.Wait()
		nm.logger.Info("notification manager shutdown complete")
	})
}

// NotificationService queues offline notices and serves them back to their owner.
type NotificationService struct {
	manager *NotificationManager
	repo    dbmysql.NotificationRepository
	enabled bool
	logger  *zap.Logger
}

func NewNotificationService(
	cfg *config.Config,
	repo dbmysql.NotificationRepository,
	logger *zap.Logger,
) *NotificationService {
	logger = logger.Named("notif")
	manager := NewNotificationManager(cfg.Notification.Workers, cfg.Notification.ChannelBufferSize, logger)

	manager.Subscribe(NewDatabaseNotificationObserver(repo))
	manager.Subscribe(NewLogNotificationObserver(logger))

	return &NotificationService{
		manager: manager,
		repo:    repo,
		enabled: cfg.Notification.Enabled,
		logger:  logger,
	}
}

// NotifyAsync implements common.Notifier.
func (s *NotificationService) NotifyAsync(event common.NotificationEvent) {
	if !s.enabled {
		return
	}
	if err := validateEvent(event); err != nil {
		s.logger.Warn("invalid notification event", zap.Error(err))
		return
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.manager.NotifyAsync(event)
}

func (s *NotificationService) GetUserNotifications(
	ctx context.Context,
	userID string,
	limit, offset int,
) ([]*dbmysql.Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	notifications, err := s.repo.ByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, common.Infrastructure("failed to get notifications", err)
	}
	unread, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return nil, 0, common.Infrastructure("failed to count notifications", err)
	}
	return notifications, unread, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, userID string) error {
	if notificationID == "" {
		return common.Validation(common.ReasonMalformedPayload, "notification id is required")
	}
	if err := s.repo.MarkAsRead(ctx, notificationID, userID); err != nil {
		if errors.Is(err, dbmysql.ErrNotificationNotFound) {
			return common.NotFound(common.ReasonNotificationNotFound, "notification not found")
		}
		return common.Infrastructure("failed to mark notification read", err)
	}
	return nil
}

func (s *NotificationService) Shutdown() {
	s.manager.Shutdown()
}

// MessageNotification builds the notice for a message the receiver missed.
func MessageNotification(receiverID, senderID, senderHandle, messageID string, kind common.MessageKind, content string) common.NotificationEvent {
	preview := content
	if kind != common.MessageKindText {
		preview = fmt.Sprintf("sent you a %s", kind)
	}
	if utf8.RuneCountInString(preview) > previewLength {
		preview = string([]rune(preview)[:previewLength]) + "…"
	}
	return common.NotificationEvent{
		Type:          common.MessageType,
		UserID:        receiverID,
		TriggerUserID: senderID,
		Header:        fmt.Sprintf("Message from %s", displayHandle(senderHandle, senderID)),
		Content:       preview,
		Metadata: common.NotificationMetadata{
			"message_id": messageID,
			"kind":       string(kind),
		},
	}
}

// FollowNotification builds the notice for a follow the target missed.
func FollowNotification(targetID, followerID, followerHandle string) common.NotificationEvent {
	return common.NotificationEvent{
		Type:          common.FollowType,
		UserID:        targetID,
		TriggerUserID: followerID,
		Header:        "New follower",
		Content:       fmt.Sprintf("%s started following you", displayHandle(followerHandle, followerID)),
		Metadata: common.NotificationMetadata{
			"follower_id": followerID,
		},
	}
}

func displayHandle(handle, fallback string) string {
	if handle != "" {
		return handle
	}
	return fallback
}

func validateEvent(event common.NotificationEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	if event.Header == "" {
		return fmt.Errorf("header is required")
	}

	if event.Content == "" {
		return fmt.Errorf("content is required")
	}

	return nil
}
