package room

import (
	"encoding/json"
	"errors"
)

var (
	ErrRoomFull       = errors.New("room is full")
	ErrGameInProgress = errors.New("game already in progress")
	ErrNotHost        = errors.New("only host can start the game")
)

// State is the race progress of a room
type State string

const (
	StatePending  State = "pending"
	StateStarted  State = "started"
	StateFinished State = "finished"
)

const (
	DefaultCapacity   = 3
	DefaultArenaWidth = 800
	DefaultSpawnY     = 100
)

// DefaultPalette is the colour order participants are assigned in
var DefaultPalette = []string{"#FF6B9D", "#3498DB", "#9B59B6", "#E74C3C", "#2ECC71", "#F39C12"}

// Settings are the per-room limits taken from the active race preset
type Settings struct {
	Capacity   int
	Palette    []string
	ArenaWidth float64
	SpawnY     float64
}

// DefaultSettings returns the base three-player configuration
func DefaultSettings() Settings {
	return Settings{
		Capacity:   DefaultCapacity,
		Palette:    append([]string(nil), DefaultPalette...),
		ArenaWidth: DefaultArenaWidth,
		SpawnY:     DefaultSpawnY,
	}
}

// Kinematics is the latest client-reported movement state of a participant
type Kinematics struct {
	X                 float64 `json:"x"`
	Y                 float64 `json:"y"`
	VelocityX         float64 `json:"velocityX"`
	VelocityY         float64 `json:"velocityY"`
	TailPhase         float64 `json:"tailPhase"`
	SpeedMultiplier   float64 `json:"speedMultiplier"`
	SlowdownTimer     float64 `json:"slowdownTimer"`
	SlipstreamTimer   float64 `json:"slipstreamTimer"`
	ActivePowerUpType *string `json:"activePowerUpType"`
	PowerUpTimer      float64 `json:"powerUpTimer"`
}

// Participant is one connected player inside a room
type Participant struct {
	ID       string `json:"id"`
	SocketID string `json:"socketId"`
	Nickname string `json:"nickname"`
	Color    string `json:"color"`
	Kinematics
	Finished   bool   `json:"finished"`
	FinishTime *int64 `json:"finishTime,omitempty"`
}

// StartResult is what gets broadcast when a race starts
type StartResult struct {
	PowerUps  []json.RawMessage
	Obstacles []json.RawMessage
	Players   []Participant
}

// LeaveResult describes the effects of a participant leaving
type LeaveResult struct {
	Participant Participant
	Players     []Participant
	// NewHost is set only when the departing participant was host.
	NewHost      string
	Empty        bool
	RaceComplete bool
	Rankings     []Participant
}

// FinishResult is the announcement for a participant crossing the line
type FinishResult struct {
	PlayerID     string
	Nickname     string
	FinishTime   int64
	Position     int
	RaceComplete bool
	Rankings     []Participant
}

// Snapshot is a read-only view of a room
type Snapshot struct {
	Code         string        `json:"code"`
	Host         string        `json:"host"`
	State        State         `json:"state"`
	Capacity     int           `json:"capacity"`
	Players      []Participant `json:"players"`
	PowerUps     int           `json:"power_ups"`
	Obstacles    int           `json:"obstacles"`
	DroppedItems int           `json:"dropped_items"`
	CreatedAt    int64         `json:"created_at"`
}
