package registry

import (
	"crypto/rand"
	"errors"
	"sync"
	"time"

	"github.com/wricardo/mcp-training/raceroom/game/room"
)

var (
	ErrRoomNotFound = errors.New("room not found")
)

// Registry owns every live room, keyed by room code
type Registry struct {
	rooms    map[string]*room.Room
	settings room.Settings
	now      func() time.Time
	generate func() string
	mu       sync.RWMutex
}

// Option configures a Registry
type Option func(*Registry)

// WithClock overrides the time source handed to new rooms and the sweep
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// WithCodeGenerator overrides the random room code source
func WithCodeGenerator(generate func() string) Option {
	return func(r *Registry) {
		r.generate = generate
	}
}

// New creates an empty registry whose rooms use the given settings
func New(settings room.Settings, opts ...Option) *Registry {
	r := &Registry{
		rooms:    make(map[string]*room.Room),
		settings: settings,
		now:      time.Now,
		generate: randomCode,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Settings returns the settings new rooms are created with
func (r *Registry) Settings() room.Settings {
	return r.settings
}

// GenerateUniqueCode returns a code not used by any live room
func (r *Registry) GenerateUniqueCode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.uniqueCode()
}

func (r *Registry) uniqueCode() string {
	code := r.generate()
	for {
		if _, exists := r.rooms[code]; !exists {
			return code
		}
		code = r.generate()
	}
}

// Create opens a new room with connID as its host
func (r *Registry) Create(connID, nickname string) (*room.Room, room.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rm := room.New(r.uniqueCode(), r.settings, room.WithClock(r.now))
	// An empty room always accepts its first participant.
	host, _ := rm.Join(connID, nickname)

	r.rooms[rm.Code()] = rm
	return rm, host
}

// Get retrieves a room by its canonical code
func (r *Registry) Get(code string) (*room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, exists := r.rooms[code]
	if !exists {
		return nil, ErrRoomNotFound
	}
	return rm, nil
}

// FindByParticipant returns the room a connection currently belongs to
func (r *Registry) FindByParticipant(connID string) (*room.Room, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rm := range r.rooms {
		if rm.Has(connID) {
			return rm, true
		}
	}
	return nil, false
}

// Delete removes a room
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, code)
}

// List returns all live rooms
func (r *Registry) List() []*room.Room {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*room.Room, 0, len(r.rooms))
	for _, rm := range r.rooms {
		result = append(result, rm)
	}
	return result
}

// Count returns the number of live rooms
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// SweepExpired removes every room older than maxAge, occupied or not, and
// returns the removed codes.
func (r *Registry) SweepExpired(maxAge time.Duration) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed []string
	for code, rm := range r.rooms {
		if now.Sub(rm.CreatedAt()) > maxAge {
			delete(r.rooms, code)
			removed = append(removed, code)
		}
	}
	return removed
}

// randomCode draws CodeLength characters from CodeAlphabet. The alphabet has
// 32 symbols so masking a random byte is unbiased.
func randomCode() string {
	buf := make([]byte, room.CodeLength)
	rand.Read(buf)
	for i, b := range buf {
		buf[i] = room.CodeAlphabet[int(b)%len(room.CodeAlphabet)]
	}
	return string(buf)
}
