package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/wricardo/mcp-training/raceroom/game/room"
	"github.com/wricardo/mcp-training/raceroom/game/service"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

// Manager handles race preset loading and caching
type Manager struct {
	configDir     string
	defaultConfig *room.Preset
	configs       map[string]*room.Preset
	mu            sync.RWMutex
}

// NewManager creates a new configuration manager
func NewManager(configDir string) (*Manager, error) {
	if _, err := os.Stat(configDir); os.IsNotExist(err) {
		return nil, fmt.Errorf("config directory does not exist: %s", configDir)
	}

	m := &Manager{
		configDir: configDir,
		configs:   make(map[string]*room.Preset),
	}

	if err := m.loadDefaultConfig(); err != nil {
		return nil, fmt.Errorf("failed to load default config: %w", err)
	}

	return m, nil
}

// LoadConfig loads a preset by name
func (m *Manager) LoadConfig(name string) (*room.Preset, error) {
	name = strings.TrimSuffix(name, ".json")

	m.mu.RLock()
	if preset, exists := m.configs[name]; exists {
		m.mu.RUnlock()
		return preset, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Double-check after acquiring write lock
	if preset, exists := m.configs[name]; exists {
		return preset, nil
	}

	data, err := os.ReadFile(filepath.Join(m.configDir, name+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var preset room.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := room.ValidatePreset(&preset); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	m.configs[name] = &preset
	return &preset, nil
}

// ListConfigs returns information about all valid presets in the directory
func (m *Manager) ListConfigs() ([]*service.ConfigInfo, error) {
	entries, err := os.ReadDir(m.configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read config directory: %w", err)
	}

	var configs []*service.ConfigInfo

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), ".json")

		preset, err := m.LoadConfig(name)
		if err != nil {
			// Skip invalid configs
			continue
		}

		configs = append(configs, &service.ConfigInfo{
			Filename:    entry.Name(),
			ConfigID:    name,
			Name:        preset.Name,
			Description: preset.Description,
			Capacity:    preset.Capacity,
		})
	}

	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ConfigID < configs[j].ConfigID
	})

	return configs, nil
}

// GetDefault returns the default preset
func (m *Manager) GetDefault() *room.Preset {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.defaultConfig
}

// SetDefault sets the default preset by name
func (m *Manager) SetDefault(name string) error {
	preset, err := m.LoadConfig(name)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.defaultConfig = preset
	return nil
}

// loadDefaultConfig prefers classic.json, then the first valid preset, then
// the built-in three-player preset.
func (m *Manager) loadDefaultConfig() error {
	preset, err := m.LoadConfig("classic")
	if err != nil {
		configs, listErr := m.ListConfigs()
		if listErr != nil || len(configs) == 0 {
			m.defaultConfig = BuiltinPreset()
			return nil
		}

		preset, err = m.LoadConfig(configs[0].ConfigID)
		if err != nil {
			m.defaultConfig = BuiltinPreset()
			return nil
		}
	}

	m.defaultConfig = preset
	return nil
}

// BuiltinPreset is the preset used when no config file is usable
func BuiltinPreset() *room.Preset {
	settings := room.DefaultSettings()
	return &room.Preset{
		Name:        "default",
		Description: "Built-in three player race",
		Capacity:    settings.Capacity,
		Palette:     settings.Palette,
		ArenaWidth:  settings.ArenaWidth,
		SpawnY:      settings.SpawnY,
	}
}
