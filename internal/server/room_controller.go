// Package server holds the HTTP controllers for room and problem
// management. Gameplay itself runs over websockets; these endpoints only
// create rooms, expose room snapshots and list the problem bank.
package server

import (
	"coderace/internal/game"
	"coderace/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// RoomController handles room CRUD endpoints.
type RoomController struct {
	registry *game.Registry
}

// NewRoomController creates a new RoomController.
func NewRoomController(registry *game.Registry) *RoomController {
	return &RoomController{registry: registry}
}

// Create handles room creation.
func (h *RoomController) Create(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request parameters")
		return
	}

	room, err := h.registry.CreateRoom(game.RoomConfig{
		Host:             req.HostName,
		Difficulty:       req.Difficulty,
		TimeLimitSeconds: req.TimeLimit,
		TotalRounds:      req.Rounds,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, CreateRoomResponse{RoomID: room.ID()})
}

// Get handles a room snapshot query.
func (h *RoomController) Get(c *gin.Context) {
	room, err := h.registry.GetRoom(c.Param("room_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, room.Info())
}

// List handles the live room listing.
func (h *RoomController) List(c *gin.Context) {
	response.Success(c, h.registry.List())
}

// CreateRoomRequest defines the room creation payload.
type CreateRoomRequest struct {
	HostName   string `json:"host_name" binding:"required"`
	Difficulty string `json:"difficulty"`
	TimeLimit  int    `json:"time_limit" binding:"required"`
	Rounds     int    `json:"rounds" binding:"required"`
}

// CreateRoomResponse carries the generated room code.
type CreateRoomResponse struct {
	RoomID string `json:"room_id"`
}
