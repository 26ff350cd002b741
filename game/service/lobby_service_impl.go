package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// lobbyServiceImpl implements the LobbyService interface
type lobbyServiceImpl struct {
	rooms       RoomStore
	configs     ConfigManager
	connections ConnectionCounter
	now         func() time.Time
}

// NewLobbyService creates a new lobby service instance. connections may be nil.
func NewLobbyService(rooms RoomStore, configs ConfigManager, connections ConnectionCounter) LobbyService {
	return &lobbyServiceImpl{
		rooms:       rooms,
		configs:     configs,
		connections: connections,
		now:         time.Now,
	}
}

// ListRooms returns all live rooms, newest first, without rosters
func (s *lobbyServiceImpl) ListRooms(ctx context.Context) ([]*RoomInfo, error) {
	rooms := s.rooms.List()

	result := make([]*RoomInfo, 0, len(rooms))
	for _, rm := range rooms {
		info := s.toRoomInfo(rm.Snapshot())
		info.Players = nil
		result = append(result, info)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].Code < result[j].Code
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	return result, nil
}

// GetRoom returns one room with its roster
func (s *lobbyServiceImpl) GetRoom(ctx context.Context, code string) (*RoomInfo, error) {
	rm, err := s.rooms.Get(room.NormalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("room %s: %w", room.NormalizeCode(code), err)
	}
	return s.toRoomInfo(rm.Snapshot()), nil
}

// Stats summarizes rooms, players and connections
func (s *lobbyServiceImpl) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{
		RoomsByState: map[room.State]int{
			room.StatePending:  0,
			room.StateStarted:  0,
			room.StateFinished: 0,
		},
	}

	for _, rm := range s.rooms.List() {
		snap := rm.Snapshot()
		stats.Rooms++
		stats.Players += len(snap.Players)
		stats.RoomsByState[snap.State]++
	}

	if s.connections != nil {
		stats.Connections = s.connections.ConnectionCount()
	}

	if preset := s.configs.GetDefault(); preset != nil {
		stats.Preset = preset.Name
		stats.Capacity = preset.Capacity
	}

	return stats, nil
}

// ListConfigs returns the available race presets
func (s *lobbyServiceImpl) ListConfigs(ctx context.Context) ([]*ConfigInfo, error) {
	return s.configs.ListConfigs()
}

// LoadConfig returns a race preset by name
func (s *lobbyServiceImpl) LoadConfig(ctx context.Context, name string) (*room.Preset, error) {
	return s.configs.LoadConfig(name)
}

func (s *lobbyServiceImpl) toRoomInfo(snap room.Snapshot) *RoomInfo {
	createdAt := time.UnixMilli(snap.CreatedAt)
	return &RoomInfo{
		Code:         snap.Code,
		Host:         snap.Host,
		State:        snap.State,
		Capacity:     snap.Capacity,
		PlayerCount:  len(snap.Players),
		Players:      snap.Players,
		PowerUps:     snap.PowerUps,
		Obstacles:    snap.Obstacles,
		DroppedItems: snap.DroppedItems,
		CreatedAt:    createdAt,
		AgeSeconds:   int64(s.now().Sub(createdAt).Seconds()),
	}
}
