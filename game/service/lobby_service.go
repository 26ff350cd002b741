package service

import (
	"context"

	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// LobbyService defines the read-only operations exposed over REST and MCP.
// Room mutations only happen through the websocket gateway.
type LobbyService interface {
	// Rooms
	ListRooms(ctx context.Context) ([]*RoomInfo, error)
	GetRoom(ctx context.Context, code string) (*RoomInfo, error)
	Stats(ctx context.Context) (*Stats, error)

	// Configuration
	ListConfigs(ctx context.Context) ([]*ConfigInfo, error)
	LoadConfig(ctx context.Context, name string) (*room.Preset, error)
}

// RoomStore is the registry surface the service reads from
type RoomStore interface {
	Get(code string) (*room.Room, error)
	List() []*room.Room
}

// ConfigManager handles race preset loading
type ConfigManager interface {
	LoadConfig(name string) (*room.Preset, error)
	ListConfigs() ([]*ConfigInfo, error)
	GetDefault() *room.Preset
}

// ConnectionCounter reports how many websocket connections are open
type ConnectionCounter interface {
	ConnectionCount() int
}
