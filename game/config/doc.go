// Package config provides race preset management for the Race Room Server.
//
// The config package handles:
//   - Loading race presets from JSON files
//   - Preset validation
//   - Default preset selection
//   - Preset discovery and listing
//
// Preset Format:
//
// Presets are stored as JSON files in the configs directory. Each preset
// defines:
//   - capacity: maximum participants per room
//   - palette: colours handed out in join order
//   - arena_width: track width, spawn X is half of it
//   - spawn_y: spawn height of every participant
//
// Available Presets:
//   - classic: three racers (the default)
//   - party: six racers on a wider track
//
// Usage:
//
//	manager, err := config.NewManager("configs")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	preset, err := manager.LoadConfig("party")
//	defaultPreset := manager.GetDefault()
//	presets, err := manager.ListConfigs()
package config
