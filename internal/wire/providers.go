package wire

import (
	"context"
	"time"

	"gosocial/internal/chat/handler"
	"gosocial/internal/chat/service"
	"gosocial/internal/common"
	"gosocial/internal/config"
	"gosocial/internal/dbmongo"
	"gosocial/internal/dbmysql"
	"gosocial/internal/media"
	"gosocial/internal/notif"
	"gosocial/internal/realtime"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Application is everything cmd/realtime-svc needs to serve.
type Application struct {
	Config              *config.Config
	Logger              *zap.Logger
	DB                  *gorm.DB
	Mongo               *dbmongo.MongoClient
	Tokens              *common.TokenService
	Realtime            *realtime.Server
	Registry            *realtime.Registry
	ChatHandler         *handler.ChatHandler
	NotificationHandler *notif.NotificationHandler
	MediaHandler        *media.Handler
	NotificationService *notif.NotificationService
}

func ProvideDatabaseConnection(cfg *config.Config, logger *zap.Logger) (*gorm.DB, func(), error) {
	db, err := dbmysql.NewMySQL(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	return db, cleanup, nil
}

func ProvideMongo(cfg *config.Config, logger *zap.Logger) (*dbmongo.MongoClient, func(), error) {
	mc, err := dbmongo.NewMongoConnection(cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mc.Close(ctx); err != nil {
			logger.Warn("mongo disconnect failed", zap.Error(err))
		}
	}
	return mc, cleanup, nil
}

// ProvideNotificationService stops the worker pool on cleanup so queued
// notices are flushed before the database closes.
func ProvideNotificationService(cfg *config.Config, repo dbmysql.NotificationRepository, logger *zap.Logger) (*notif.NotificationService, func()) {
	svc := notif.NewNotificationService(cfg, repo, logger)
	return svc, svc.Shutdown
}

func ProvideTokenService(cfg *config.Config) *common.TokenService {
	return common.NewTokenService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.TTL)
}

func ProvideMetrics() *realtime.Metrics {
	return realtime.NewMetrics(prometheus.DefaultRegisterer)
}

func ProvideAuthGate(cfg *config.Config, verifier common.TokenVerifier, users service.UserDirectory) *realtime.AuthGate {
	return realtime.NewAuthGate(verifier, users, cfg.Realtime.AuthTimeout)
}

func ProvideDispatcher(cfg *config.Config, deps realtime.DispatcherDeps, logger *zap.Logger) *realtime.Dispatcher {
	return realtime.NewDispatcher(deps, cfg.Realtime.HandlerTimeout, logger.Named("dispatch"))
}
