// Package mcp exposes the race server's lobby to AI agents over the Model
// Context Protocol.
//
// The client is a thin proxy: every tool calls the REST API and formats the
// JSON answer as text. It never mutates rooms.
//
// MCP Tools:
//   - list_rooms: live rooms, optionally filtered by state
//   - get_room: one room with roster, host and finish times
//   - server_stats: room, player and connection counts
//   - list_configs / get_config: race presets
//   - protocol_reference: the websocket message catalogue
//
// Transport Modes:
//   - Stdio: `raceroom stdio-mcp --api-url http://localhost:8080`
//   - HTTP: POST /mcp on the running server
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
