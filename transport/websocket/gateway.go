package websocket

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// dispatch decodes one inbound frame and routes it to its handler. Runs on
// the hub goroutine only.
func (h *Hub) dispatch(c *Client, data []byte) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.WithError(err).WithField("conn_id", c.id).Debug("Ignoring malformed frame")
		return
	}

	var err error
	switch msg.Event {
	case EventCreateRoom:
		err = h.handleCreateRoom(c, msg.Data)
	case EventJoinRoom:
		err = h.handleJoinRoom(c, msg.Data)
	case EventStartGame:
		err = h.handleStartGame(c, msg.Data)
	case EventUpdatePosition:
		err = h.handleUpdatePosition(c, msg.Data)
	case EventCollectPowerUp:
		err = h.handleCollectPowerUp(c, msg.Data)
	case EventHitObstacle:
		err = h.handleHitObstacle(c, msg.Data)
	case EventDropCondom:
		err = h.handleDropCondom(c, msg.Data)
	case EventPlayerFinished:
		err = h.handlePlayerFinished(c, msg.Data)
	default:
		h.log.WithFields(logrus.Fields{
			"conn_id": c.id,
			"event":   msg.Event,
		}).Debug("Ignoring unknown event")
		return
	}

	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{
			"conn_id": c.id,
			"event":   msg.Event,
		}).Debug("Ignoring undecodable payload")
	}
}

func (h *Hub) handleCreateRoom(c *Client, data json.RawMessage) error {
	var req createRoomRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	previous, hadPrevious := h.registry.FindByParticipant(c.id)
	if hadPrevious {
		h.departRoom(previous, c.id)
	}

	rm, host := h.registry.Create(c.id, req.Nickname)

	h.log.WithFields(logrus.Fields{
		"conn_id":   c.id,
		"room_code": rm.Code(),
		"nickname":  host.Nickname,
	}).Info("Room created")

	h.reply(c, EventRoomCreated, roomCreatedEvent{
		RoomCode: rm.Code(),
		Player:   host,
		IsHost:   true,
	})
	return nil
}

func (h *Hub) handleJoinRoom(c *Client, data json.RawMessage) error {
	var req joinRoomRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	code := room.NormalizeCode(req.RoomCode)
	rm, err := h.registry.Get(code)
	if err != nil {
		h.replyError(c, MsgRoomNotFound)
		return nil
	}

	if p, ok := rm.Participant(c.id); ok {
		h.reply(c, EventRoomJoined, roomJoinedEvent{
			RoomCode: rm.Code(),
			Player:   p,
			Players:  rm.Players(),
			IsHost:   rm.Host() == c.id,
		})
		return nil
	}

	previous, hadPrevious := h.registry.FindByParticipant(c.id)

	player, err := rm.Join(c.id, req.Nickname)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrRoomFull):
			h.replyError(c, fmt.Sprintf(MsgRoomFull, rm.Capacity()))
		case errors.Is(err, room.ErrGameInProgress):
			h.replyError(c, MsgGameInProgress)
		default:
			h.replyError(c, err.Error())
		}
		return nil
	}

	if hadPrevious {
		h.departRoom(previous, c.id)
	}

	players := rm.Players()

	h.log.WithFields(logrus.Fields{
		"conn_id":   c.id,
		"room_code": rm.Code(),
		"nickname":  player.Nickname,
		"players":   len(players),
	}).Info("Player joined room")

	h.reply(c, EventRoomJoined, roomJoinedEvent{
		RoomCode: rm.Code(),
		Player:   player,
		Players:  players,
		IsHost:   rm.Host() == c.id,
	})
	h.broadcastRoom(rm, EventPlayerJoined, playerJoinedEvent{
		Player:  player,
		Players: players,
	}, c.id)
	return nil
}

func (h *Hub) handleStartGame(c *Client, data json.RawMessage) error {
	var req startGameRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	rm, err := h.registry.Get(room.NormalizeCode(req.RoomCode))
	if err != nil {
		h.log.WithField("room_code", req.RoomCode).Debug("start-game for unknown room")
		return nil
	}

	if req.PowerUps == nil {
		req.PowerUps = []json.RawMessage{}
	}
	if req.Obstacles == nil {
		req.Obstacles = []json.RawMessage{}
	}

	result, err := rm.Start(c.id, req.PowerUps, req.Obstacles)
	if err != nil {
		switch {
		case errors.Is(err, room.ErrNotHost):
			h.replyError(c, MsgOnlyHostCanStart)
		case errors.Is(err, room.ErrGameInProgress):
			h.replyError(c, MsgGameInProgress)
		default:
			h.replyError(c, err.Error())
		}
		return nil
	}

	h.log.WithFields(logrus.Fields{
		"room_code": rm.Code(),
		"players":   len(result.Players),
		"powerups":  len(result.PowerUps),
		"obstacles": len(result.Obstacles),
	}).Info("Race started")

	h.broadcastRoom(rm, EventGameStarted, gameStartedEvent{
		PowerUps:  result.PowerUps,
		Obstacles: result.Obstacles,
		Players:   result.Players,
	}, "")
	return nil
}

func (h *Hub) handleUpdatePosition(c *Client, data json.RawMessage) error {
	var req updatePositionRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	rm, ok := h.memberRoom(c, req.RoomCode)
	if !ok {
		return nil
	}

	k, ok := rm.UpdatePosition(c.id, req.Kinematics)
	if !ok {
		return nil
	}

	h.broadcastRoom(rm, EventPlayerUpdate, playerUpdateEvent{
		PlayerID:   c.id,
		RoomCode:   rm.Code(),
		Kinematics: k,
	}, c.id)
	return nil
}

func (h *Hub) handleCollectPowerUp(c *Client, data json.RawMessage) error {
	var req collectPowerUpRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	rm, ok := h.memberRoom(c, req.RoomCode)
	if !ok {
		return nil
	}

	h.broadcastRoom(rm, EventPowerUpCollected, powerUpCollectedEvent{
		PlayerID:  c.id,
		PowerUpID: req.PowerUpID,
	}, "")
	return nil
}

func (h *Hub) handleHitObstacle(c *Client, data json.RawMessage) error {
	var req hitObstacleRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	rm, ok := h.memberRoom(c, req.RoomCode)
	if !ok {
		return nil
	}

	h.broadcastRoom(rm, EventObstacleHit, obstacleHitEvent{
		PlayerID:   c.id,
		ObstacleID: req.ObstacleID,
	}, "")
	return nil
}

func (h *Hub) handleDropCondom(c *Client, data json.RawMessage) error {
	var req dropCondomRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	rm, ok := h.memberRoom(c, req.RoomCode)
	if !ok {
		return nil
	}

	if !rm.DropHazard(c.id, req.Condom) {
		return nil
	}

	h.broadcastRoom(rm, EventCondomDropped, condomDroppedEvent{
		PlayerID: c.id,
		Condom:   req.Condom,
	}, c.id)
	return nil
}

func (h *Hub) handlePlayerFinished(c *Client, data json.RawMessage) error {
	var req playerFinishedRequest
	if err := decodeData(data, &req); err != nil {
		return err
	}

	rm, ok := h.memberRoom(c, req.RoomCode)
	if !ok {
		return nil
	}

	result, ok := rm.Finish(c.id)
	if !ok {
		return nil
	}

	h.log.WithFields(logrus.Fields{
		"room_code":   rm.Code(),
		"conn_id":     c.id,
		"position":    result.Position,
		"finish_time": result.FinishTime,
	}).Info("Player finished")

	h.broadcastRoom(rm, EventPlayerCrossedFinish, playerCrossedFinishEvent{
		PlayerID:   result.PlayerID,
		Nickname:   result.Nickname,
		FinishTime: result.FinishTime,
		Position:   result.Position,
	}, "")

	if result.RaceComplete {
		h.finishRace(rm, result.Rankings)
	}
	return nil
}

// memberRoom resolves the room a relay event refers to. The sender must be in
// the roster; without a code the sender's current room is used.
func (h *Hub) memberRoom(c *Client, code string) (*room.Room, bool) {
	code = room.NormalizeCode(code)
	if code == "" {
		return h.registry.FindByParticipant(c.id)
	}

	rm, err := h.registry.Get(code)
	if err != nil || !rm.Has(c.id) {
		h.log.WithFields(logrus.Fields{
			"conn_id":   c.id,
			"room_code": code,
		}).Debug("Ignoring event for a room the sender is not in")
		return nil, false
	}
	return rm, true
}

func (h *Hub) finishRace(rm *room.Room, rankings []room.Participant) {
	h.log.WithFields(logrus.Fields{
		"room_code": rm.Code(),
		"finishers": len(rankings),
	}).Info("Race finished")

	h.broadcastRoom(rm, EventGameFinished, gameFinishedEvent{Rankings: rankings}, "")
}

func (h *Hub) replyError(c *Client, message string) {
	h.reply(c, EventRoomError, roomErrorEvent{Message: message})
}
