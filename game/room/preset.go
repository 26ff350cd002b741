package room

import (
	"fmt"
	"regexp"
)

const MaxCapacity = 16

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// Preset is a named race configuration as stored on disk
type Preset struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Capacity    int      `json:"capacity"`
	Palette     []string `json:"palette"`
	ArenaWidth  float64  `json:"arena_width"`
	SpawnY      float64  `json:"spawn_y"`
}

// Settings converts the preset into room settings
func (p *Preset) Settings() Settings {
	return Settings{
		Capacity:   p.Capacity,
		Palette:    append([]string(nil), p.Palette...),
		ArenaWidth: p.ArenaWidth,
		SpawnY:     p.SpawnY,
	}
}

// ValidatePreset checks that a preset can back a room
func ValidatePreset(p *Preset) error {
	if p == nil {
		return fmt.Errorf("preset is nil")
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Capacity < 1 || p.Capacity > MaxCapacity {
		return fmt.Errorf("capacity must be between 1 and %d, got %d", MaxCapacity, p.Capacity)
	}
	if len(p.Palette) == 0 {
		return fmt.Errorf("palette must contain at least one colour")
	}
	for i, c := range p.Palette {
		if !colorPattern.MatchString(c) {
			return fmt.Errorf("palette[%d] %q is not a #RRGGBB colour", i, c)
		}
	}
	if p.ArenaWidth <= 0 {
		return fmt.Errorf("arena_width must be positive")
	}
	if p.SpawnY < 0 {
		return fmt.Errorf("spawn_y must not be negative")
	}
	return nil
}
