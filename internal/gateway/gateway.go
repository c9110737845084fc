package gateway

import (
	"context"
	"errors"
	"net/http"
	"time"

	"channelchat-backend/internal/hub"
	"channelchat-backend/internal/jwt"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

type Authenticator interface {
	Verify(credential string) (int64, error)
}

type Authority interface {
	IsMember(ctx context.Context, userID int64, channelID int64) (bool, error)
}

type Registry interface {
	Register(channelID int64, conn hub.Conn)
	Unregister(channelID int64, conn hub.Conn)
}

// Gateway runs the per-connection lifecycle: upgrade, authenticate, authorize,
// register, then block reading until the peer goes away. Authentication and
// authorization failures close the socket with a policy violation; faults
// while checking authorization close it with an internal error.
type Gateway struct {
	auth      Authenticator
	authority Authority
	registry  Registry
	sugar     *zap.SugaredLogger
	upgrader  websocket.Upgrader
}

func New(auth Authenticator, authority Authority, registry Registry, sugar *zap.SugaredLogger) *Gateway {
	return &Gateway{
		auth:      auth,
		authority: authority,
		registry:  registry,
		sugar:     sugar,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// Handle serves one realtime connection for the given channel. The credential
// arrives as a token query parameter since browsers cannot set headers on a
// websocket handshake.
func (g *Gateway) Handle(w http.ResponseWriter, r *http.Request, channelID int64) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.sugar.Error(err)
		return
	}
	defer conn.Close()

	userID, err := g.auth.Verify(r.URL.Query().Get("token"))
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			g.sugar.Debugf("Realtime handshake with expired credential: %v", err)
		} else {
			g.sugar.Debugf("Realtime handshake with invalid credential: %v", err)
		}
		g.closeWith(conn, websocket.ClosePolicyViolation, "could not validate credential")
		return
	}

	isMember, err := g.authority.IsMember(r.Context(), userID, channelID)
	if err != nil {
		g.sugar.Error(err)
		g.closeWith(conn, websocket.CloseInternalServerErr, "")
		return
	}
	if !isMember {
		g.sugar.Debugf("User ID %d tried to open a realtime connection to channel ID %d without membership", userID, channelID)
		g.closeWith(conn, websocket.ClosePolicyViolation, "not a member of this channel")
		return
	}

	wsConn := hub.NewWSConn(conn)
	g.registry.Register(channelID, wsConn)
	// one unregister on every exit path, panics included
	defer g.registry.Unregister(channelID, wsConn)

	g.sugar.Debugf("User ID %d connected to channel ID %d", userID, channelID)

	// Inbound frames are read and discarded; the read only ends when the
	// client disconnects or the transport fails.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			g.sugar.Debugf("User ID %d left channel ID %d: %v", userID, channelID, err)
			return
		}
	}
}

func (g *Gateway) closeWith(conn *websocket.Conn, code int, reason string) {
	message := websocket.FormatCloseMessage(code, reason)
	if err := conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(5*time.Second)); err != nil {
		g.sugar.Debug(err)
	}
}
