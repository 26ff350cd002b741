package room

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestRoom(t *testing.T, capacity int) (*Room, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	settings := DefaultSettings()
	settings.Capacity = capacity
	return New("K3XHRM", settings, WithClock(clock.now)), clock
}

func TestRoom_Join(t *testing.T) {
	r, _ := newTestRoom(t, 3)

	t.Run("first participant becomes host", func(t *testing.T) {
		p, err := r.Join("conn-a", "Ann")
		require.NoError(t, err)
		assert.Equal(t, "conn-a", p.ID)
		assert.Equal(t, "conn-a", p.SocketID)
		assert.Equal(t, "#FF6B9D", p.Color)
		assert.Equal(t, float64(400), p.X)
		assert.Equal(t, float64(100), p.Y)
		assert.Equal(t, float64(1), p.SpeedMultiplier)
		assert.False(t, p.Finished)
		assert.Nil(t, p.FinishTime)
		assert.Equal(t, "conn-a", r.Host())
	})

	t.Run("second participant gets second palette colour", func(t *testing.T) {
		p, err := r.Join("conn-b", "Bob")
		require.NoError(t, err)
		assert.Equal(t, "#3498DB", p.Color)
		assert.Equal(t, "conn-a", r.Host())
		assert.Equal(t, 2, r.Len())
	})

	t.Run("default nickname", func(t *testing.T) {
		p, err := r.Join("conn-c", "")
		require.NoError(t, err)
		assert.Equal(t, "Player 3", p.Nickname)
	})

	t.Run("full room rejects without mutation", func(t *testing.T) {
		_, err := r.Join("conn-d", "Dan")
		assert.ErrorIs(t, err, ErrRoomFull)
		_, err = r.Join("conn-e", "Eve")
		assert.ErrorIs(t, err, ErrRoomFull)
		assert.Equal(t, 3, r.Len())
		assert.False(t, r.Has("conn-d"))
	})
}

func TestRoom_JoinDefaultNicknameForHost(t *testing.T) {
	r, _ := newTestRoom(t, 3)
	p, err := r.Join("conn-a", "")
	require.NoError(t, err)
	assert.Equal(t, "Player", p.Nickname)
}

func TestRoom_JoinAfterStartRejected(t *testing.T) {
	r, _ := newTestRoom(t, 6)
	_, err := r.Join("conn-a", "Ann")
	require.NoError(t, err)

	_, err = r.Start("conn-a", nil, nil)
	require.NoError(t, err)

	_, err = r.Join("conn-b", "Bob")
	assert.ErrorIs(t, err, ErrGameInProgress)
	assert.Equal(t, 1, r.Len())
}

func TestRoom_PaletteWrapsPastLength(t *testing.T) {
	settings := DefaultSettings()
	settings.Capacity = 8
	r := New("ABCDEF", settings)

	var colors []string
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		p, err := r.Join(id, id)
		require.NoError(t, err)
		colors = append(colors, p.Color)
	}
	assert.Equal(t, DefaultPalette[0], colors[6])
}

func TestRoom_Leave(t *testing.T) {
	t.Run("host leaving promotes first remaining in join order", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		for _, id := range []string{"zed", "amy", "bob"} {
			_, err := r.Join(id, id)
			require.NoError(t, err)
		}

		res, ok := r.Leave("zed")
		require.True(t, ok)
		assert.Equal(t, "amy", res.NewHost)
		assert.Equal(t, "amy", r.Host())
		assert.False(t, res.Empty)
		assert.Equal(t, "zed", res.Participant.ID)
		require.Len(t, res.Players, 2)
		assert.Equal(t, "amy", res.Players[0].ID)
	})

	t.Run("non-host leaving keeps host", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		_, _ = r.Join("a", "A")
		_, _ = r.Join("b", "B")

		res, ok := r.Leave("b")
		require.True(t, ok)
		assert.Empty(t, res.NewHost)
		assert.Equal(t, "a", r.Host())
	})

	t.Run("last participant empties room", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		_, _ = r.Join("a", "A")

		res, ok := r.Leave("a")
		require.True(t, ok)
		assert.True(t, res.Empty)
		assert.Empty(t, res.NewHost)
		assert.Equal(t, 0, r.Len())
	})

	t.Run("unknown participant", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		_, ok := r.Leave("ghost")
		assert.False(t, ok)
	})

	t.Run("leaving unfinished racer completes the race", func(t *testing.T) {
		r, clock := newTestRoom(t, 3)
		_, _ = r.Join("a", "A")
		_, _ = r.Join("b", "B")
		_, err := r.Start("a", nil, nil)
		require.NoError(t, err)

		clock.advance(5 * time.Second)
		_, ok := r.Finish("a")
		require.True(t, ok)

		res, ok := r.Leave("b")
		require.True(t, ok)
		assert.True(t, res.RaceComplete)
		require.Len(t, res.Rankings, 1)
		assert.Equal(t, "a", res.Rankings[0].ID)
		assert.Equal(t, StateFinished, r.State())
	})
}

func TestRoom_HostInvariant(t *testing.T) {
	r, _ := newTestRoom(t, 3)
	ids := []string{"a", "b", "c"}
	for _, id := range ids {
		_, _ = r.Join(id, id)
	}

	for _, id := range ids {
		_, ok := r.Leave(id)
		require.True(t, ok)
		if r.Len() > 0 {
			assert.True(t, r.Has(r.Host()), "host %q must be in roster", r.Host())
		} else {
			assert.Empty(t, r.Host())
		}
	}
}

func TestRoom_Start(t *testing.T) {
	r, _ := newTestRoom(t, 3)
	_, _ = r.Join("host", "Ann")
	_, _ = r.Join("guest", "Bob")

	powerUps := []json.RawMessage{json.RawMessage(`{"id":"p1","type":"speed"}`)}
	obstacles := []json.RawMessage{json.RawMessage(`{"id":"o1","x":10}`)}

	t.Run("non-host rejected", func(t *testing.T) {
		_, err := r.Start("guest", powerUps, obstacles)
		assert.ErrorIs(t, err, ErrNotHost)
		assert.Equal(t, StatePending, r.State())
	})

	t.Run("host starts", func(t *testing.T) {
		res, err := r.Start("host", powerUps, obstacles)
		require.NoError(t, err)
		assert.Equal(t, powerUps, res.PowerUps)
		assert.Equal(t, obstacles, res.Obstacles)
		assert.Len(t, res.Players, 2)
		assert.Equal(t, StateStarted, r.State())
		assert.Equal(t, 1, r.Snapshot().PowerUps)
	})

	t.Run("second start rejected", func(t *testing.T) {
		_, err := r.Start("host", nil, nil)
		assert.ErrorIs(t, err, ErrGameInProgress)
		assert.Equal(t, 1, r.Snapshot().Obstacles)
	})
}

func TestRoom_UpdatePosition(t *testing.T) {
	r, _ := newTestRoom(t, 3)
	_, _ = r.Join("a", "A")

	boost := "speed"
	k := Kinematics{X: -50, Y: 99999, VelocityX: 3, VelocityY: -2, TailPhase: 0.5,
		SpeedMultiplier: 2.5, SlowdownTimer: 1, SlipstreamTimer: 2, ActivePowerUpType: &boost, PowerUpTimer: 3}

	got, ok := r.UpdatePosition("a", k)
	require.True(t, ok)
	assert.Equal(t, k, got)

	p, _ := r.Participant("a")
	assert.Equal(t, k, p.Kinematics)

	_, ok = r.UpdatePosition("ghost", k)
	assert.False(t, ok)
}

func TestRoom_DropHazard(t *testing.T) {
	r, _ := newTestRoom(t, 3)
	_, _ = r.Join("a", "A")

	assert.True(t, r.DropHazard("a", json.RawMessage(`{"x":1}`)))
	assert.True(t, r.DropHazard("a", json.RawMessage(`{"x":2}`)))
	assert.False(t, r.DropHazard("ghost", json.RawMessage(`{}`)))
	assert.Equal(t, 2, r.Snapshot().DroppedItems)
}

func TestRoom_Finish(t *testing.T) {
	t.Run("idempotent per participant", func(t *testing.T) {
		r, clock := newTestRoom(t, 3)
		_, _ = r.Join("a", "A")
		_, _ = r.Join("b", "B")
		_, err := r.Start("a", nil, nil)
		require.NoError(t, err)

		clock.advance(1500 * time.Millisecond)
		res, ok := r.Finish("a")
		require.True(t, ok)
		assert.Equal(t, 1, res.Position)
		assert.Equal(t, int64(1500), res.FinishTime)
		assert.Equal(t, "A", res.Nickname)
		assert.False(t, res.RaceComplete)

		_, ok = r.Finish("a")
		assert.False(t, ok)

		p, _ := r.Participant("a")
		require.NotNil(t, p.FinishTime)
		assert.Equal(t, int64(1500), *p.FinishTime)
	})

	t.Run("unknown participant", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		_, err := r.Join("a", "A")
		require.NoError(t, err)
		_, err = r.Start("a", nil, nil)
		require.NoError(t, err)

		_, ok := r.Finish("ghost")
		assert.False(t, ok)
	})

	t.Run("ignored before the race starts", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		_, err := r.Join("ann", "Ann")
		require.NoError(t, err)

		_, ok := r.Finish("ann")
		assert.False(t, ok)
		assert.Equal(t, StatePending, r.State())

		p, _ := r.Participant("ann")
		assert.False(t, p.Finished)
		assert.Nil(t, p.FinishTime)

		_, err = r.Join("bob", "Bob")
		require.NoError(t, err)
		_, err = r.Start("ann", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, StateStarted, r.State())
	})

	t.Run("finished room stays finished", func(t *testing.T) {
		r, _ := newTestRoom(t, 3)
		_, _ = r.Join("ann", "Ann")
		_, err := r.Start("ann", nil, nil)
		require.NoError(t, err)

		res, ok := r.Finish("ann")
		require.True(t, ok)
		require.True(t, res.RaceComplete)

		_, err = r.Join("bob", "Bob")
		assert.ErrorIs(t, err, ErrGameInProgress)
		_, err = r.Start("ann", nil, nil)
		assert.ErrorIs(t, err, ErrGameInProgress)
		assert.Equal(t, StateFinished, r.State())
		assert.Equal(t, 1, r.Len())
	})

	t.Run("arrival order with clock ties", func(t *testing.T) {
		r, clock := newTestRoom(t, 3)
		for _, id := range []string{"p3", "p2", "p1"} {
			_, _ = r.Join(id, id)
		}
		_, err := r.Start("p3", nil, nil)
		require.NoError(t, err)

		clock.advance(10 * time.Second)

		res1, _ := r.Finish("p1")
		res2, _ := r.Finish("p2")
		res3, _ := r.Finish("p3")

		assert.Equal(t, 1, res1.Position)
		assert.Equal(t, 2, res2.Position)
		assert.Equal(t, 3, res3.Position)
		assert.Equal(t, res1.FinishTime, res3.FinishTime)

		require.True(t, res3.RaceComplete)
		require.Len(t, res3.Rankings, 3)
		assert.Equal(t, "p1", res3.Rankings[0].ID)
		assert.Equal(t, "p2", res3.Rankings[1].ID)
		assert.Equal(t, "p3", res3.Rankings[2].ID)
		assert.Equal(t, StateFinished, r.State())
	})

	t.Run("rankings sorted by finish time", func(t *testing.T) {
		r, clock := newTestRoom(t, 3)
		_, _ = r.Join("a", "A")
		_, _ = r.Join("b", "B")
		_, err := r.Start("a", nil, nil)
		require.NoError(t, err)

		clock.advance(2 * time.Second)
		_, _ = r.Finish("b")
		clock.advance(time.Second)
		res, _ := r.Finish("a")

		require.True(t, res.RaceComplete)
		assert.Equal(t, "b", res.Rankings[0].ID)
		assert.Equal(t, int64(2000), *res.Rankings[0].FinishTime)
		assert.Equal(t, int64(3000), *res.Rankings[1].FinishTime)
	})
}

func TestNew_DefaultsMissingSettings(t *testing.T) {
	r := New("K3XHRM", Settings{})
	assert.Equal(t, DefaultCapacity, r.Capacity())

	p, err := r.Join("ann", "Ann")
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultArenaWidth)/2, p.X)
	assert.Equal(t, DefaultPalette[0], p.Color)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "K3XHRM", NormalizeCode(" k3xhrm "))
	assert.True(t, IsValidCode("K3XHRM"))
	assert.False(t, IsValidCode("K3XHR"))
	assert.False(t, IsValidCode("K3XHR0"))
	assert.False(t, IsValidCode("k3xhrm"))
}
