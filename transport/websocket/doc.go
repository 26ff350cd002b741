// Package websocket is the session gateway of the race server.
//
// A single Hub owns every WebSocket connection. Its Run loop is the only
// goroutine that mutates rooms: connection registration, inbound frames,
// disconnects and the periodic expiry sweep are received over channels and
// handled one at a time, so per-room operations never interleave.
//
// Message Protocol:
//
// Every frame is a JSON envelope in both directions:
//
//	{"event": "join-room", "data": {"roomCode": "K3XHRM", "nickname": "Bob"}}
//
// Inbound events are create-room, join-room, start-game, update-position,
// collect-powerup, hit-obstacle, drop-condom and player-finished. Rejected
// requests get a room-error reply; stale or malformed ones are dropped.
//
// Room Scoping:
//
// A connection's id is also its participant id. The room a connection belongs
// to is always looked up in the registry, and broadcasts walk that room's
// roster, so events never reach another room.
//
// Usage:
//
//	hub := websocket.NewHub(registry.New(room.DefaultSettings()))
//	go hub.Run(ctx)
//
//	router.HandleFunc("/ws", hub.ServeWS)
//
// Connection Lifecycle:
//
// 1. Client connects and is registered with the hub
// 2. Client creates or joins a room
// 3. Room events are relayed to the room's members
// 4. Disconnection removes the participant, promotes a new host when needed
// and deletes the room once it is empty
package websocket
