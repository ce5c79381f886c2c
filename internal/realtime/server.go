package realtime

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/config"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Server upgrades /ws requests and runs each connection until it ends.
type Server struct {
	upgrader websocket.Upgrader
	gate     *AuthGate
	presence *Presence
	rooms    *Rooms
	registry *Registry
	dispatch *Dispatcher
	metrics  *Metrics
	cfg      config.RealtimeConfig
	logger   *zap.Logger
}

func NewServer(
	cfg *config.Config,
	gate *AuthGate,
	presence *Presence,
	rooms *Rooms,
	registry *Registry,
	dispatch *Dispatcher,
	metrics *Metrics,
	logger *zap.Logger,
) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     makeCheckOrigin(cfg.Server.AllowedOrigins, cfg.Server.Environment),
		},
		gate:     gate,
		presence: presence,
		rooms:    rooms,
		registry: registry,
		dispatch: dispatch,
		metrics:  metrics,
		cfg:      cfg.Realtime,
		logger:   logger.Named("realtime"),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return
	}

	identity, err := s.gate.Handshake(context.Background(), ws)
	if err != nil {
		s.refuse(ws, err)
		return
	}

	conn := NewConn(ws, identity, s.cfg, s.logger)
	go conn.WritePump()

	ctx, cancel := s.handlerContext()
	err = s.presence.Connect(ctx, conn, s.cfg.MaxConnectionsPerUser)
	cancel()
	if err != nil {
		s.metrics.handshake(common.ReasonTooManyConnections)
		s.logger.Info("connection refused",
			zap.String("userID", identity.UserID),
			zap.Error(err))
		conn.Close(CloseTooManyConnections, common.ReasonTooManyConnections)
		return
	}
	s.metrics.handshake("ok")
	s.logger.Info("connection established",
		zap.String("userID", conn.UserID()),
		zap.String("connectionID", conn.ID()))

	conn.ReadPump(s.dispatch.Dispatch)

	s.rooms.LeaveAll(conn.ID())
	ctx, cancel = s.handlerContext()
	s.presence.Disconnect(ctx, conn)
	cancel()
	s.logger.Info("connection closed",
		zap.String("userID", conn.UserID()),
		zap.String("connectionID", conn.ID()))
}

// Shutdown closes every live connection with going-away.
func (s *Server) Shutdown() {
	for _, sess := range s.registry.All() {
		sess.Close(websocket.CloseGoingAway, "server_shutdown")
	}
}

func (s *Server) refuse(ws *websocket.Conn, err error) {
	reason := common.ReasonOf(err)
	code := CloseUnauthenticated
	if common.KindOf(err) == common.KindInfrastructure {
		code = websocket.CloseInternalServerErr
		s.logger.Error("handshake failed", zap.Error(err))
	} else {
		s.logger.Debug("handshake refused", zap.String("reason", reason))
	}
	s.metrics.handshake(reason)

	msg := websocket.FormatCloseMessage(code, reason)
	_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = ws.Close()
}

func (s *Server) handlerContext() (context.Context, context.CancelFunc) {
	timeout := s.cfg.HandlerTimeout
	if timeout <= 0 {
		timeout = defaultHandlerTimeout
	}
	return context.WithTimeout(context.Background(), timeout)
}

// makeCheckOrigin allows listed origins. An empty list allows everything
// outside production.
func makeCheckOrigin(allowed []string, environment string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(strings.ToLower(o), "/")] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if len(set) == 0 {
			return environment != "production"
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		_, ok := set[strings.ToLower(u.Scheme+"://"+u.Host)]
		return ok
	}
}
