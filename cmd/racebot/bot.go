package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/raceroom/game/room"
	race "github.com/wricardo/mcp-training/raceroom/transport/websocket"
)

// ErrRejected wraps a room-error reply from the server
var ErrRejected = errors.New("rejected by server")

// Bot is one scripted racer holding its own websocket connection
type Bot struct {
	Nickname string
	conn     *websocket.Conn
	wait     time.Duration
	log      *logrus.Entry
}

// Dial connects a bot to the gateway at wsURL
func Dial(ctx context.Context, wsURL, nickname string, wait time.Duration) (*Bot, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", wsURL, err)
	}
	return &Bot{
		Nickname: nickname,
		conn:     conn,
		wait:     wait,
		log:      logrus.WithFields(logrus.Fields{"component": "racebot", "bot": nickname}),
	}, nil
}

// Close drops the connection, which the server treats as a departure
func (b *Bot) Close() error {
	return b.conn.Close()
}

func (b *Bot) send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	msg := race.Message{Event: event, Data: payload}
	b.conn.SetWriteDeadline(time.Now().Add(b.wait))
	if err := b.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// await reads frames until one of the wanted events arrives and decodes its
// payload into v. A room-error reply ends the wait with ErrRejected.
func (b *Bot) await(ctx context.Context, want string, v any) error {
	deadline := time.Now().Add(b.wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	b.conn.SetReadDeadline(deadline)

	for {
		var msg race.Message
		if err := b.conn.ReadJSON(&msg); err != nil {
			return fmt.Errorf("waiting for %s: %w", want, err)
		}

		switch msg.Event {
		case want:
			if v == nil {
				return nil
			}
			return json.Unmarshal(msg.Data, v)
		case race.EventRoomError:
			var rejection struct {
				Message string `json:"message"`
			}
			json.Unmarshal(msg.Data, &rejection)
			return fmt.Errorf("%w: %s", ErrRejected, rejection.Message)
		default:
			b.log.WithField("event", msg.Event).Debug("Skipping frame")
		}
	}
}

// CreateRoom opens a new room with this bot as host
func (b *Bot) CreateRoom(ctx context.Context) (string, room.Participant, error) {
	if err := b.send(race.EventCreateRoom, map[string]string{"nickname": b.Nickname}); err != nil {
		return "", room.Participant{}, err
	}
	var created struct {
		RoomCode string           `json:"roomCode"`
		Player   room.Participant `json:"player"`
	}
	if err := b.await(ctx, race.EventRoomCreated, &created); err != nil {
		return "", room.Participant{}, err
	}
	return created.RoomCode, created.Player, nil
}

// JoinRoom joins an existing room by code
func (b *Bot) JoinRoom(ctx context.Context, code string) (room.Participant, error) {
	req := map[string]string{"roomCode": code, "nickname": b.Nickname}
	if err := b.send(race.EventJoinRoom, req); err != nil {
		return room.Participant{}, err
	}
	var joined struct {
		Player room.Participant `json:"player"`
	}
	if err := b.await(ctx, race.EventRoomJoined, &joined); err != nil {
		return room.Participant{}, err
	}
	return joined.Player, nil
}

// StartGame asks the server to start the race with empty entity lists
func (b *Bot) StartGame(code string) error {
	return b.send(race.EventStartGame, map[string]any{
		"roomCode":  code,
		"powerUps":  []any{},
		"obstacles": []any{},
	})
}

// WaitStarted blocks until the game-started broadcast
func (b *Bot) WaitStarted(ctx context.Context) error {
	return b.await(ctx, race.EventGameStarted, nil)
}

// Drive sends updates position frames moving straight up the track from spawn
// and then crosses the finish line.
func (b *Bot) Drive(ctx context.Context, code string, spawn room.Kinematics, updates int, delay time.Duration) error {
	pos := spawn
	for i := 0; i < updates; i++ {
		pos.Y += 25
		pos.VelocityY = 25
		pos.SpeedMultiplier = 1
		req := struct {
			RoomCode string `json:"roomCode"`
			room.Kinematics
		}{code, pos}
		if err := b.send(race.EventUpdatePosition, req); err != nil {
			return err
		}
		if delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return b.send(race.EventPlayerFinished, map[string]string{"roomCode": code})
}

// WaitFinished blocks until the room announces final rankings
func (b *Bot) WaitFinished(ctx context.Context) ([]room.Participant, error) {
	var finished struct {
		Rankings []room.Participant `json:"rankings"`
	}
	if err := b.await(ctx, race.EventGameFinished, &finished); err != nil {
		return nil, err
	}
	return finished.Rankings, nil
}
