//go:build wireinject
// +build wireinject

package wire

import (
	"gosocial/internal/chat/handler"
	"gosocial/internal/chat/repository"
	"gosocial/internal/chat/service"
	"gosocial/internal/common"
	"gosocial/internal/config"
	"gosocial/internal/dbmongo"
	"gosocial/internal/dbmysql"
	"gosocial/internal/logging"
	"gosocial/internal/media"
	"gosocial/internal/notif"
	"gosocial/internal/realtime"
	"gosocial/internal/user"

	"github.com/google/wire"
)

var storeSet = wire.NewSet(
	ProvideDatabaseConnection,
	ProvideMongo,
	repository.NewMessageStore,
	dbmongo.NewMediaStorage,
	dbmysql.NewNotificationRepository,
	user.NewUserRepository,
)

var serviceSet = wire.NewSet(
	user.NewUserService,
	service.NewChatService,
	ProvideNotificationService,
	ProvideTokenService,
	wire.Bind(new(service.UserDirectory), new(*user.UserService)),
	wire.Bind(new(service.MediaStore), new(*dbmongo.MediaStorage)),
	wire.Bind(new(media.Store), new(*dbmongo.MediaStorage)),
	wire.Bind(new(common.TokenVerifier), new(*common.TokenService)),
	wire.Bind(new(common.Notifier), new(*notif.NotificationService)),
)

var realtimeSet = wire.NewSet(
	ProvideMetrics,
	ProvideAuthGate,
	ProvideDispatcher,
	realtime.NewRegistry,
	realtime.NewRooms,
	realtime.NewHub,
	realtime.NewPresence,
	realtime.NewMessageRouter,
	realtime.NewDeliveryTracker,
	realtime.NewDeletionHandler,
	realtime.NewTypingRelay,
	realtime.NewRelationshipRelay,
	realtime.NewServer,
	wire.Struct(new(realtime.DispatcherDeps), "*"),
	wire.Bind(new(realtime.PresenceStore), new(*user.UserService)),
	wire.Bind(new(realtime.FollowService), new(*user.UserService)),
)

func InitializeApplication(cfg *config.Config) (*Application, func(), error) {
	wire.Build(
		logging.NewLogger,
		storeSet,
		serviceSet,
		realtimeSet,
		handler.NewChatHandler,
		notif.NewNotificationHandler,
		media.NewHandler,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}
