package websocket

import (
	"encoding/json"

	"github.com/wricardo/mcp-training/raceroom/game/room"
)

// Inbound events
const (
	EventCreateRoom     = "create-room"
	EventJoinRoom       = "join-room"
	EventStartGame      = "start-game"
	EventUpdatePosition = "update-position"
	EventCollectPowerUp = "collect-powerup"
	EventHitObstacle    = "hit-obstacle"
	EventDropCondom     = "drop-condom"
	EventPlayerFinished = "player-finished"
)

// Outbound events
const (
	EventRoomCreated         = "room-created"
	EventRoomJoined          = "room-joined"
	EventPlayerJoined        = "player-joined"
	EventRoomError           = "room-error"
	EventGameStarted         = "game-started"
	EventPlayerUpdate        = "player-update"
	EventPowerUpCollected    = "powerup-collected"
	EventObstacleHit         = "obstacle-hit"
	EventCondomDropped       = "condom-dropped"
	EventPlayerCrossedFinish = "player-crossed-finish"
	EventGameFinished        = "game-finished"
	EventPlayerLeft          = "player-left"
	EventNewHost             = "new-host"
)

// User-visible room-error texts
const (
	MsgRoomNotFound     = "Room not found"
	MsgRoomFull         = "Room is full (max %d players)"
	MsgGameInProgress   = "Game already in progress"
	MsgOnlyHostCanStart = "Only host can start the game"
)

// Message is the envelope of every frame in both directions
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type createRoomRequest struct {
	Nickname string `json:"nickname"`
}

type joinRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Nickname string `json:"nickname"`
}

type startGameRequest struct {
	RoomCode  string            `json:"roomCode"`
	PowerUps  []json.RawMessage `json:"powerUps"`
	Obstacles []json.RawMessage `json:"obstacles"`
}

type updatePositionRequest struct {
	RoomCode string `json:"roomCode"`
	room.Kinematics
}

type collectPowerUpRequest struct {
	RoomCode  string `json:"roomCode"`
	PowerUpID string `json:"powerUpId"`
}

type hitObstacleRequest struct {
	RoomCode   string `json:"roomCode"`
	ObstacleID string `json:"obstacleId"`
}

type dropCondomRequest struct {
	RoomCode string          `json:"roomCode"`
	Condom   json.RawMessage `json:"condom"`
}

type playerFinishedRequest struct {
	RoomCode string `json:"roomCode"`
}

type roomCreatedEvent struct {
	RoomCode string           `json:"roomCode"`
	Player   room.Participant `json:"player"`
	IsHost   bool             `json:"isHost"`
}

type roomJoinedEvent struct {
	RoomCode string             `json:"roomCode"`
	Player   room.Participant   `json:"player"`
	Players  []room.Participant `json:"players"`
	IsHost   bool               `json:"isHost"`
}

type playerJoinedEvent struct {
	Player  room.Participant   `json:"player"`
	Players []room.Participant `json:"players"`
}

type roomErrorEvent struct {
	Message string `json:"message"`
}

type gameStartedEvent struct {
	PowerUps  []json.RawMessage  `json:"powerUps"`
	Obstacles []json.RawMessage  `json:"obstacles"`
	Players   []room.Participant `json:"players"`
}

type playerUpdateEvent struct {
	PlayerID string `json:"playerId"`
	RoomCode string `json:"roomCode"`
	room.Kinematics
}

type powerUpCollectedEvent struct {
	PlayerID  string `json:"playerId"`
	PowerUpID string `json:"powerUpId"`
}

type obstacleHitEvent struct {
	PlayerID   string `json:"playerId"`
	ObstacleID string `json:"obstacleId"`
}

type condomDroppedEvent struct {
	PlayerID string          `json:"playerId"`
	Condom   json.RawMessage `json:"condom"`
}

type playerCrossedFinishEvent struct {
	PlayerID   string `json:"playerId"`
	Nickname   string `json:"nickname"`
	FinishTime int64  `json:"finishTime"`
	Position   int    `json:"position"`
}

type gameFinishedEvent struct {
	Rankings []room.Participant `json:"rankings"`
}

type playerLeftEvent struct {
	PlayerID string             `json:"playerId"`
	Nickname string             `json:"nickname"`
	Players  []room.Participant `json:"players"`
}

type newHostEvent struct {
	HostID string `json:"hostId"`
}

// decodeData unmarshals an event payload; a missing payload decodes as zero.
func decodeData(data json.RawMessage, v any) error {
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	return json.Unmarshal(data, v)
}
