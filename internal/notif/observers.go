package notif

import (
	"context"
	"fmt"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/dbmysql"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const observerWriteTimeout = 5 * time.Second

type DatabaseNotificationObserver struct {
	repo dbmysql.NotificationRepository
}

func NewDatabaseNotificationObserver(repo dbmysql.NotificationRepository) *DatabaseNotificationObserver {
	return &DatabaseNotificationObserver{
		repo: repo,
	}
}

func (d *DatabaseNotificationObserver) Name() string {
	return "database_observer"
}

func (d *DatabaseNotificationObserver) Update(event common.NotificationEvent) error {
	notification := &dbmysql.Notification{
		ID:            uuid.NewString(),
		UserID:        event.UserID,
		Type:          string(event.Type),
		Header:        event.Header,
		Content:       event.Content,
		Status:        string(common.StatusPending),
		Metadata:      dbmysql.JSONMetadata(event.Metadata),
		TriggerUserID: event.TriggerUserID,
		CreatedAt:     event.CreatedAt,
	}

	ctx, cancel := context.WithTimeout(context.Background(), observerWriteTimeout)
	defer cancel()

	if err := d.repo.Create(ctx, notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	return nil
}

type LogNotificationObserver struct {
	logger *zap.Logger
}

func NewLogNotificationObserver(logger *zap.Logger) *LogNotificationObserver {
	return &LogNotificationObserver{logger: logger}
}

func (l *LogNotificationObserver) Name() string {
	return "log_observer"
}

func (l *LogNotificationObserver) Update(event common.NotificationEvent) error {
	l.logger.Info("offline notification queued",
		zap.String("type", string(event.Type)),
		zap.String("userID", event.UserID),
		zap.String("triggerUserID", event.TriggerUserID))
	return nil
}
