package room

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Room is one isolated race session
type Room struct {
	code      string
	settings  Settings
	createdAt time.Time
	now       func() time.Time

	mu          sync.RWMutex
	roster      *orderedmap.OrderedMap[string, *Participant]
	host        string
	powerUps    []json.RawMessage
	obstacles   []json.RawMessage
	dropped     []json.RawMessage
	started     bool
	finished    bool
	finishOrder []string
}

// Option configures a Room
type Option func(*Room)

// WithClock overrides the time source used for createdAt and finish times
func WithClock(now func() time.Time) Option {
	return func(r *Room) {
		r.now = now
	}
}

// New creates an empty room. The first participant to join becomes host.
func New(code string, settings Settings, opts ...Option) *Room {
	r := &Room{
		code:     code,
		settings: settings,
		now:      time.Now,
		roster:   orderedmap.New[string, *Participant](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.settings.Capacity <= 0 {
		r.settings.Capacity = DefaultCapacity
	}
	if len(r.settings.Palette) == 0 {
		r.settings.Palette = DefaultPalette
	}
	if r.settings.ArenaWidth <= 0 {
		r.settings.ArenaWidth = DefaultArenaWidth
	}
	r.createdAt = r.now()
	return r
}

// Code returns the room code
func (r *Room) Code() string { return r.code }

// CreatedAt returns when the room was created
func (r *Room) CreatedAt() time.Time { return r.createdAt }

// Capacity returns the maximum roster size
func (r *Room) Capacity() int { return r.settings.Capacity }

// Host returns the current host identifier
func (r *Room) Host() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.host
}

// State returns the race progress of the room
func (r *Room) State() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state()
}

func (r *Room) state() State {
	switch {
	case r.finished:
		return StateFinished
	case r.started:
		return StateStarted
	default:
		return StatePending
	}
}

// Len returns the roster size
func (r *Room) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.roster.Len()
}

// Has reports whether id is in the roster
func (r *Room) Has(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.roster.Get(id)
	return ok
}

// Participant returns a copy of the participant with the given id
func (r *Room) Participant(id string) (Participant, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.roster.Get(id)
	if !ok {
		return Participant{}, false
	}
	return *p, true
}

// Players returns copies of all participants in join order
func (r *Room) Players() []Participant {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.players()
}

func (r *Room) players() []Participant {
	out := make([]Participant, 0, r.roster.Len())
	for pair := r.roster.Oldest(); pair != nil; pair = pair.Next() {
		out = append(out, *pair.Value)
	}
	return out
}

// Join adds a participant for the given connection
func (r *Room) Join(id, nickname string) (Participant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.roster.Len() >= r.settings.Capacity {
		return Participant{}, ErrRoomFull
	}
	if r.started || r.finished {
		return Participant{}, ErrGameInProgress
	}

	size := r.roster.Len()
	if nickname == "" {
		if size == 0 {
			nickname = "Player"
		} else {
			nickname = fmt.Sprintf("Player %d", size+1)
		}
	}

	p := &Participant{
		ID:       id,
		SocketID: id,
		Nickname: nickname,
		Color:    r.settings.Palette[size%len(r.settings.Palette)],
		Kinematics: Kinematics{
			X:               r.settings.ArenaWidth / 2,
			Y:               r.settings.SpawnY,
			SpeedMultiplier: 1,
		},
	}
	r.roster.Set(id, p)

	if r.host == "" {
		r.host = id
	}

	return *p, nil
}

// Leave removes a participant, promoting a new host and completing the race
// when needed.
func (r *Room) Leave(id string) (LeaveResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.roster.Delete(id)
	if !ok {
		return LeaveResult{}, false
	}

	result := LeaveResult{Participant: *p}

	if r.roster.Len() == 0 {
		r.host = ""
		result.Empty = true
		result.Players = []Participant{}
		return result, true
	}

	if r.host == id {
		r.host = r.roster.Oldest().Key
		result.NewHost = r.host
	}

	if r.started && !r.finished && r.allFinished() {
		r.finished = true
		result.RaceComplete = true
		result.Rankings = r.rankings()
	}

	result.Players = r.players()
	return result, true
}

// Start begins the race. The entity lists are stored verbatim.
func (r *Room) Start(requester string, powerUps, obstacles []json.RawMessage) (StartResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.host != requester {
		return StartResult{}, ErrNotHost
	}
	if r.started || r.finished {
		return StartResult{}, ErrGameInProgress
	}

	r.started = true
	r.powerUps = powerUps
	r.obstacles = obstacles

	return StartResult{
		PowerUps:  powerUps,
		Obstacles: obstacles,
		Players:   r.players(),
	}, nil
}

// UpdatePosition overwrites the kinematic snapshot of a participant
func (r *Room) UpdatePosition(id string, k Kinematics) (Kinematics, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.roster.Get(id)
	if !ok {
		return Kinematics{}, false
	}
	p.Kinematics = k
	return k, true
}

// DropHazard records a hazard dropped by a participant
func (r *Room) DropHazard(id string, payload json.RawMessage) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.roster.Get(id); !ok {
		return false
	}
	r.dropped = append(r.dropped, payload)
	return true
}

// Finish marks a participant as finished. It returns false before the race
// has started and for a second call by the same participant.
func (r *Room) Finish(id string) (FinishResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.started || r.finished {
		return FinishResult{}, false
	}

	p, ok := r.roster.Get(id)
	if !ok || p.Finished {
		return FinishResult{}, false
	}

	elapsed := r.now().Sub(r.createdAt).Milliseconds()
	p.Finished = true
	p.FinishTime = &elapsed
	r.finishOrder = append(r.finishOrder, id)

	position := 0
	for pair := r.roster.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Finished {
			position++
		}
	}

	result := FinishResult{
		PlayerID:   id,
		Nickname:   p.Nickname,
		FinishTime: elapsed,
		Position:   position,
	}

	if r.allFinished() {
		r.finished = true
		result.RaceComplete = true
		result.Rankings = r.rankings()
	}

	return result, true
}

// Snapshot returns a read-only view of the room
func (r *Room) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return Snapshot{
		Code:         r.code,
		Host:         r.host,
		State:        r.state(),
		Capacity:     r.settings.Capacity,
		Players:      r.players(),
		PowerUps:     len(r.powerUps),
		Obstacles:    len(r.obstacles),
		DroppedItems: len(r.dropped),
		CreatedAt:    r.createdAt.UnixMilli(),
	}
}

func (r *Room) allFinished() bool {
	if r.roster.Len() == 0 {
		return false
	}
	for pair := r.roster.Oldest(); pair != nil; pair = pair.Next() {
		if !pair.Value.Finished {
			return false
		}
	}
	return true
}

// rankings orders finished participants by finish time; finishOrder breaks ties.
func (r *Room) rankings() []Participant {
	out := make([]Participant, 0, len(r.finishOrder))
	for _, id := range r.finishOrder {
		if p, ok := r.roster.Get(id); ok && p.Finished {
			out = append(out, *p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return *out[i].FinishTime < *out[j].FinishTime
	})
	return out
}
