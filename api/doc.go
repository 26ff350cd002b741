// Package api provides the HTTP REST API of the race server.
//
// The REST surface is read-only. Rooms are created, joined and raced over
// the websocket gateway; these endpoints let operators and tools inspect
// what is going on.
//
// Endpoints:
//
//   - GET /api/health - Liveness plus room, player and connection counts
//   - GET /api/rooms - List live rooms, newest first (?state=, ?limit=)
//   - GET /api/rooms/{code} - One room with its roster (code is case-insensitive)
//   - GET /api/configs - List race presets
//   - GET /api/configs/{name} - One race preset
//   - GET /ws - WebSocket upgrade into the session gateway
//
// Usage:
//
//	server := api.NewServer(lobbyService, hub, "./static")
//	server.Router().Handle("/mcp", mcpHandler)
//	server.MountStatic()
//	http.ListenAndServe(":8080", server)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "room ZZZZZZ: room not found"}
package api
