package ws

import (
	"net/http"
	"time"

	"coderace/internal/game"
	"coderace/pkg/errors"
	"coderace/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Room codes are unguessable and carry no credentials; cross-origin
	// clients are expected.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Handler upgrades GET /ws/:room_id connections and runs a session against
// the target room. An unknown room id is a terminal error: the client gets
// one error frame, then the connection is closed.
func Handler(registry *game.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("room_id")

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn(c.Request.Context(), "websocket upgrade failed", zap.Error(err))
			return
		}

		room, err := registry.GetRoom(roomID)
		if err != nil {
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = conn.WriteJSON(game.NewErrorMsg(errors.GetError(err).Error()))
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "room not found"))
			_ = conn.Close()
			return
		}

		newSession(conn, room).run()
	}
}
