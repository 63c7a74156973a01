// Package httpapi is the outer HTTP surface: room REST glue, the
// websocket upgrade endpoint, and health.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/inkboard/inkboard/board"
	"github.com/inkboard/inkboard/internal/config"
	"github.com/inkboard/inkboard/internal/hub"
)

// Store is the persistence surface the REST handlers consume.
type Store interface {
	CreateRoom(ctx context.Context, title string) (*board.Room, error)
	RoomState(ctx context.Context, roomID string) (*board.RoomState, error)
	UpdateRoomTitle(ctx context.Context, id, title string) error
	DeleteRoom(ctx context.Context, id string) error
}

// SetupRouter wires the REST and websocket routes.
func SetupRouter(cfg *config.Config, h *hub.Hub, store Store) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"*"},
		AllowCredentials: true,
	}))

	api := r.Group("/api")
	api.POST("/rooms", createRoom(store))
	api.GET("/rooms/:id", getRoom(store))
	api.PUT("/rooms/:id/title", updateRoomTitle(store))
	api.DELETE("/rooms/:id", deleteRoom(store))

	r.GET("/ws/:roomId", serveWS(cfg, h))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	return r
}
