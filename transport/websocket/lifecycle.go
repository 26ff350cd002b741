package websocket

import (
	"github.com/sirupsen/logrus"
	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// handleDisconnect removes a closed connection from whatever room it was in.
func (h *Hub) handleDisconnect(connID string) {
	rm, ok := h.registry.FindByParticipant(connID)
	if !ok {
		return
	}
	h.departRoom(rm, connID)
}

// departRoom takes connID out of rm and tells the remaining members: first
// player-left, then new-host if the host changed, then game-finished if the
// departure completed the race. An emptied room is deleted.
func (h *Hub) departRoom(rm *room.Room, connID string) {
	result, ok := rm.Leave(connID)
	if !ok {
		return
	}

	fields := logrus.Fields{
		"conn_id":   connID,
		"room_code": rm.Code(),
		"nickname":  result.Participant.Nickname,
	}

	if result.Empty {
		h.registry.Delete(rm.Code())
		h.log.WithFields(fields).Info("Room empty, deleted")
		return
	}

	h.log.WithFields(fields).WithField("remaining", len(result.Players)).Info("Player left room")

	h.broadcastRoom(rm, EventPlayerLeft, playerLeftEvent{
		PlayerID: connID,
		Nickname: result.Participant.Nickname,
		Players:  result.Players,
	}, "")

	if result.NewHost != "" {
		h.log.WithFields(logrus.Fields{
			"room_code": rm.Code(),
			"host":      result.NewHost,
		}).Info("Host promoted")
		h.broadcastRoom(rm, EventNewHost, newHostEvent{HostID: result.NewHost}, "")
	}

	if result.RaceComplete {
		h.finishRace(rm, result.Rankings)
	}
}

// sweepExpired drops rooms older than the room timeout. Members are not
// notified.
func (h *Hub) sweepExpired() {
	removed := h.registry.SweepExpired(h.roomTimeout)
	if len(removed) == 0 {
		return
	}
	h.log.WithFields(logrus.Fields{
		"rooms":   removed,
		"timeout": h.roomTimeout,
	}).Info("Swept expired rooms")
}
