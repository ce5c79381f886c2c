package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"strings"
	"time"

	"gosocial/internal/chat/service"
	"gosocial/internal/common"

	"github.com/gorilla/websocket"
)

// Identity is the verified user bound to a connection for its lifetime.
type Identity struct {
	UserID string
	Handle string
}

// AuthGate turns the credential of the first frame into an Identity.
type AuthGate struct {
	verifier common.TokenVerifier
	users    service.UserDirectory
	timeout  time.Duration
}

func NewAuthGate(verifier common.TokenVerifier, users service.UserDirectory, timeout time.Duration) *AuthGate {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AuthGate{verifier: verifier, users: users, timeout: timeout}
}

// Authenticate verifies token and checks the user still exists.
func (g *AuthGate) Authenticate(ctx context.Context, token string) (*Identity, error) {
	claims, err := g.verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	u, err := g.users.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, common.Infrastructure("failed to look up user", err)
	}
	if u == nil {
		return nil, common.Unauthenticated(common.ReasonUnknownUser, "user does not exist", nil)
	}

	handle := u.Handle
	if handle == "" {
		handle = claims.Handle
	}
	return &Identity{UserID: u.UserID, Handle: handle}, nil
}

// Handshake waits for the auth frame. Nothing else is accepted before it.
func (g *AuthGate) Handshake(ctx context.Context, ws *websocket.Conn) (*Identity, error) {
	if err := ws.SetReadDeadline(time.Now().Add(g.timeout)); err != nil {
		return nil, common.Infrastructure("failed to arm handshake deadline", err)
	}

	_, data, err := ws.ReadMessage()
	if err != nil {
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			return nil, common.Unauthenticated(common.ReasonHandshakeTimeout, "no auth frame received in time", err)
		}
		return nil, common.Unauthenticated(common.ReasonHandshakeRequired, "connection closed before auth", err)
	}

	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil || frame.Event != EventAuth {
		return nil, common.Unauthenticated(common.ReasonHandshakeRequired, "first frame must be auth", err)
	}

	var req AuthRequest
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, &req); err != nil {
			return nil, common.Unauthenticated(common.ReasonMalformedToken, "auth payload is malformed", err)
		}
	}
	if strings.TrimSpace(req.Token) == "" {
		return nil, common.Unauthenticated(common.ReasonMissingToken, "credential is required", nil)
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	identity, err := g.Authenticate(ctx, req.Token)
	if err != nil {
		return nil, err
	}

	if err := ws.SetReadDeadline(time.Time{}); err != nil {
		return nil, common.Infrastructure("failed to clear handshake deadline", err)
	}
	return identity, nil
}
