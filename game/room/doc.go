// Package room provides the race room model for the Race Room Server.
//
// The room package implements:
//   - Participant and kinematic snapshot types
//   - Join-ordered rosters bounded by a configured capacity
//   - Host designation and promotion on departure
//   - Race start, hazard drops and finish bookkeeping
//   - Room code alphabet and normalization
//
// Core Types:
//
// Room is one isolated race session. Participant is a connected player
// inside a room; its identifier is the identifier of the connection that
// created it. Settings carries the per-preset limits (capacity, palette,
// spawn point) a room is created with.
//
// State Machine:
//
// A room starts pending, moves to started when the host starts the race and
// to finished when the last participant crosses the line. None of these
// transitions can be undone. Deleting a room is the registry's job and may
// happen in any state.
//
// Concurrency:
//
// Every exported method takes the room's own lock, so snapshots can be read
// from any goroutine. Mutations are expected to be issued from a single
// goroutine (the websocket hub loop), which is what gives finish calls their
// arrival order.
//
// Payloads:
//
// Power-ups, obstacles and dropped hazards are stored as json.RawMessage and
// relayed verbatim. The server never inspects them.
package room
