// Package service provides the read-only lobby layer for the Race Room Server.
//
// The service package implements:
//   - Room listing and inspection
//   - Server statistics (rooms, players, open connections)
//   - Race preset listing and loading
//
// Core Interfaces:
//
// LobbyService is the interface the REST API and MCP tools are written
// against. RoomStore is the part of the room registry it reads from, and
// ConfigManager is the race preset source.
//
// Architecture:
//
// The service layer sits between the HTTP/MCP transports and the room
// registry. It only ever takes snapshots: joining, starting, finishing and
// leaving rooms are gateway operations driven by websocket clients.
//
// Usage:
//
//	reg := registry.New(preset.Settings())
//	configMgr, _ := config.NewManager("configs")
//	lobby := service.NewLobbyService(reg, configMgr, hub)
//
//	rooms, err := lobby.ListRooms(ctx)
//	info, err := lobby.GetRoom(ctx, "k3xhrm")
package service
