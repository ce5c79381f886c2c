package realtime

import (
	"encoding/json"
	"sync"
	"time"

	"gosocial/internal/common"
	"gosocial/internal/config"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultWriteWait       = 10 * time.Second
	defaultPongWait        = 60 * time.Second
	defaultMaxMessageBytes = 64 * 1024
	defaultSendBufferSize  = 256
)

// Conn is a websocket Session. One goroutine reads, one writes.
type Conn struct {
	id     string
	userID string
	handle string
	ws     *websocket.Conn
	send   chan []byte
	done   chan struct{}

	closeOnce   sync.Once
	closeCode   int
	closeReason string

	writeWait       time.Duration
	pongWait        time.Duration
	maxMessageBytes int64
	limiter         *rate.Limiter
	logger          *zap.Logger
}

func NewConn(ws *websocket.Conn, identity *Identity, cfg config.RealtimeConfig, logger *zap.Logger) *Conn {
	id := uuid.New().String()

	c := &Conn{
		id:              id,
		userID:          identity.UserID,
		handle:          identity.Handle,
		ws:              ws,
		writeWait:       cfg.WriteWait,
		pongWait:        cfg.PongWait,
		maxMessageBytes: cfg.MaxMessageBytes,
		logger: logger.With(
			zap.String("userID", identity.UserID),
			zap.String("connectionID", id),
		),
	}
	if c.writeWait <= 0 {
		c.writeWait = defaultWriteWait
	}
	if c.pongWait <= 0 {
		c.pongWait = defaultPongWait
	}
	if c.maxMessageBytes <= 0 {
		c.maxMessageBytes = defaultMaxMessageBytes
	}
	size := cfg.SendBufferSize
	if size <= 0 {
		size = defaultSendBufferSize
	}
	c.send = make(chan []byte, size)
	c.done = make(chan struct{})

	if cfg.EventRate > 0 {
		burst := cfg.EventBurst
		if burst <= 0 {
			burst = int(cfg.EventRate) + 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.EventRate), burst)
	}
	return c
}

func (c *Conn) ID() string     { return c.id }
func (c *Conn) UserID() string { return c.userID }
func (c *Conn) Handle() string { return c.handle }

// Done is closed once Close has been called.
func (c *Conn) Done() <-chan struct{} { return c.done }

func (c *Conn) Send(ev ServerEvent) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}

	b, err := Encode(ev)
	if err != nil {
		return err
	}

	select {
	case c.send <- b:
		return nil
	default:
		return ErrSlowConsumer
	}
}

func (c *Conn) Close(code int, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

// ReadPump reads frames and hands each one to dispatch, in order. It returns
// when the socket fails or closes.
func (c *Conn) ReadPump(dispatch func(s Session, f Frame)) {
	defer c.Close(websocket.CloseNormalClosure, "")

	c.ws.SetReadLimit(c.maxMessageBytes)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.pongWait))
	})

	for {
		messageType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.logger.Debug("ignoring non-text frame", zap.Int("type", messageType))
			continue
		}

		var f Frame
		if err := json.Unmarshal(data, &f); err != nil || f.Event == "" {
			_ = c.Send(ErrorEvent{Reason: common.ReasonMalformedPayload, Message: "frame must be {\"event\",\"data\"}"})
			continue
		}
		if c.limiter != nil && !c.limiter.Allow() {
			_ = c.Send(ErrorEvent{Op: f.Event, Reason: common.ReasonRateLimited, Message: "too many events, slow down"})
			continue
		}

		dispatch(c, f)
	}
}

// WritePump drains the send buffer and keeps the peer alive with pings.
// After Close it flushes what is queued and sends the close frame.
func (c *Conn) WritePump() {
	ticker := time.NewTicker(c.pongWait * 9 / 10)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case b := <-c.send:
			if err := c.write(websocket.TextMessage, b); err != nil {
				c.logger.Debug("websocket write failed", zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("websocket ping failed", zap.Error(err))
				c.Close(websocket.CloseAbnormalClosure, "")
				return
			}

		case <-c.done:
			c.flush()
			msg := websocket.FormatCloseMessage(c.closeCode, c.closeReason)
			_ = c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(c.writeWait))
			return
		}
	}
}

func (c *Conn) flush() {
	for {
		select {
		case b := <-c.send:
			if err := c.write(websocket.TextMessage, b); err != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.ws.WriteMessage(messageType, data)
}
