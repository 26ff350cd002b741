// Package registry provides the process-wide room registry for the Race
// Room Server.
//
// The registry package implements:
//   - Unique room code generation from an unambiguous alphabet
//   - Room creation with the creator as host
//   - Lookup by canonical code and by participant connection
//   - Deletion of empty rooms and expiry of stale ones
//
// A Registry is constructed once at start-up and injected into the
// websocket hub and the lobby service. It is never a package global, so
// tests build a fresh one each time.
//
// Codes are unique among live rooms only; a code can come back after its
// room has been deleted. Lookups expect canonical (upper case) codes, which
// callers produce with room.NormalizeCode.
//
// Usage:
//
//	reg := registry.New(room.DefaultSettings())
//
//	rm, host := reg.Create(connID, "Ann")
//	rm, err := reg.Get(room.NormalizeCode(input))
//
//	removed := reg.SweepExpired(30 * time.Minute)
package registry
