package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/inkboard/inkboard/board"
)

type createRoomRequest struct {
	Title string `json:"title"`
}

type updateTitleRequest struct {
	Title string `json:"title" binding:"required"`
}

func createRoom(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		// Missing or empty bodies just get a generated title.
		_ = c.ShouldBindJSON(&req)
		if req.Title == "" {
			req.Title = board.GenerateRoomTitle()
		}

		room, err := store.CreateRoom(c.Request.Context(), req.Title)
		if err != nil {
			log.Error().Err(err).Str("module", "httpapi").Msg("create room")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
			return
		}

		c.JSON(http.StatusCreated, room)
	}
}

func getRoom(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := store.RoomState(c.Request.Context(), c.Param("id"))
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

func updateRoomTitle(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req updateTitleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing title"})
			return
		}

		if err := store.UpdateRoomTitle(c.Request.Context(), c.Param("id"), req.Title); err != nil {
			log.Error().Err(err).Str("module", "httpapi").Msg("update room title")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update title"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func deleteRoom(store Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := store.DeleteRoom(c.Request.Context(), c.Param("id")); err != nil {
			log.Error().Err(err).Str("module", "httpapi").Msg("delete room")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete room"})
			return
		}
		c.Status(http.StatusNoContent)
	}
}
