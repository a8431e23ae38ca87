package ws

import (
	"context"
	"net/http"

	"nhooyr.io/websocket"

	"github.com/vedran77/agora/internal/logging"
)

// TokenParser resolves an access token to a user id.
type TokenParser interface {
	ParseAccess(token string) (int64, error)
}

// ServeWS returns an HTTP handler that upgrades to WebSocket.
// Auth is done via ?token=xxx query param (WebSocket can't send headers).
func ServeWS(hub *Hub, tokens TokenParser, rooms RoomAuthorizer, origins []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenStr := r.URL.Query().Get("token")
		if tokenStr == "" {
			http.Error(w, "missing token", http.StatusUnauthorized)
			return
		}

		userID, err := tokens.ParseAccess(tokenStr)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: origins,
		})
		if err != nil {
			logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket accept failed")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		client := NewClient(hub, conn, userID, rooms)
		if !hub.Register(ctx, client) {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}

		go client.WritePump(ctx)
		client.ReadPump(ctx)
	}
}
