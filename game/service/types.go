package service

import (
	"time"

	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// RoomInfo provides information about a live room
type RoomInfo struct {
	Code         string             `json:"code"`
	Host         string             `json:"host"`
	State        room.State         `json:"state"`
	Capacity     int                `json:"capacity"`
	PlayerCount  int                `json:"player_count"`
	Players      []room.Participant `json:"players,omitempty"`
	PowerUps     int                `json:"power_ups"`
	Obstacles    int                `json:"obstacles"`
	DroppedItems int                `json:"dropped_items"`
	CreatedAt    time.Time          `json:"created_at"`
	AgeSeconds   int64              `json:"age_seconds"`
}

// Stats summarizes the server's live state
type Stats struct {
	Rooms        int                `json:"rooms"`
	Players      int                `json:"players"`
	Connections  int                `json:"connections"`
	RoomsByState map[room.State]int `json:"rooms_by_state"`
	Preset       string             `json:"preset"`
	Capacity     int                `json:"capacity"`
}

// ConfigInfo provides information about a race preset
type ConfigInfo struct {
	Filename    string `json:"filename"`
	ConfigID    string `json:"config_id"` // The identifier used with --preset
	Name        string `json:"name"`
	Description string `json:"description"`
	Capacity    int    `json:"capacity"`
}
