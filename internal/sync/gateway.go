package sync

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/driftlabs/driftbox/internal/auth"
	"github.com/driftlabs/driftbox/internal/httpx"
	"github.com/driftlabs/driftbox/internal/logging"
)

const sendTimeout = 5 * time.Second

// Gateway upgrades authenticated device connections to websockets and
// keeps them registered for their lifetime.
type Gateway struct {
	reg    *Registry
	secret []byte
	log    logging.Logger
}

func NewGateway(reg *Registry, secret []byte, log logging.Logger) *Gateway {
	return &Gateway{reg: reg, secret: secret, log: log}
}

// wsConn adapts a websocket connection to the registry's Conn.
type wsConn struct {
	c *websocket.Conn
}

func (w *wsConn) Send(ctx context.Context, v any) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return wsjson.Write(ctx, w.c, v)
}

// ServeHTTP performs the handshake. The bearer credential is verified
// before any registry state is touched; invalid or missing credentials
// abort the connection.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		if t, err := httpx.BearerToken(r.Header.Get("Authorization")); err == nil {
			token = t
		}
	}
	claims, err := auth.ParseToken(token, g.secret)
	if err != nil {
		httpx.Error(r.Context(), w, g.log, err)
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		g.log.Warn(r.Context(), "websocket accept failed", "error", err.Error())
		return
	}

	connID := uuid.NewString()
	conn := &wsConn{c: c}
	g.reg.Register(claims.UserID, connID, conn)
	g.log.Info(r.Context(), "device connected", "userId", claims.UserID, "connId", connID)

	// The client only listens; CloseRead discards inbound frames and
	// cancels the context when the connection dies.
	ctx := c.CloseRead(r.Context())

	_ = conn.Send(ctx, Envelope{Event: "connected", Data: map[string]string{
		"message": "Sync service connected",
		"connId":  connID,
		"userId":  claims.UserID,
	}})

	<-ctx.Done()

	g.reg.Unregister(claims.UserID, connID)
	g.log.Info(context.Background(), "device disconnected", "userId", claims.UserID, "connId", connID)
	c.Close(websocket.StatusNormalClosure, "")
}
