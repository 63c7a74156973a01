package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/inkboard/inkboard/internal/config"
	"github.com/inkboard/inkboard/internal/hub"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser origins are enforced by the CORS layer on the REST API;
	// the upgrade accepts any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func serveWS(cfg *config.Config, h *hub.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		roomID := c.Param("roomId")
		if roomID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Room ID required"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Error().Err(err).Str("module", "httpapi").Msg("websocket upgrade")
			return
		}

		s := hub.NewSession(h, conn, roomID, c.Query("name"), hub.SessionConfig{
			ReadLimit:    cfg.ReadLimit,
			SendBuffer:   cfg.SendBuffer,
			PingPeriod:   cfg.PingPeriod,
			WriteTimeout: cfg.WriteTimeout,
		})

		h.Register(s)
		s.Start()
	}
}
