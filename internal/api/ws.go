package api

import (
	"context"

	"github.com/coder/websocket"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/waleedsbi/atm-master/internal/middleware"
	"github.com/waleedsbi/atm-master/internal/ws"
)

// wsHandler upgrades GET /api/v1/ws to a progress event stream.
func wsHandler(appCtx context.Context, log *logrus.Logger, hub *ws.Hub, corsOrigins []string, lookup ws.UserValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := middleware.ExtractBearerToken(c)

		// CORS origins double as WebSocket origin patterns; config validation
		// already rejects wildcards.
		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			OriginPatterns:       corsOrigins,
			CompressionMode:      websocket.CompressionContextTakeover,
			CompressionThreshold: 128,
		})
		if err != nil {
			log.WithError(err).Error("websocket accept failed")
			return
		}

		client := ws.NewClient(hub, conn, lookup, apiKey)
		hub.Register(client)

		// Cancel when either the server shuts down or the request ends.
		wsCtx, wsCancel := context.WithCancel(appCtx)
		go func() {
			select {
			case <-c.Request.Context().Done():
				wsCancel()
			case <-wsCtx.Done():
			}
		}()

		go client.WritePump(wsCtx)
		client.ReadPump(wsCtx)
		wsCancel()
	}
}
