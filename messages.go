package main

import (
	"encoding/json"
	"errors"

	"github.com/Seednode/tabletally/games"
)

// Inbound events
const (
	evCheckRoom      = "check-room"
	evJoinRoom       = "join-room"
	evLeaveRoom      = "leave-room"
	evKickPlayer     = "kick-player"
	evGetRoomData    = "get-room-data"
	evStartGame      = "start-game"
	evPlayerReady    = "player-ready"
	evPlayerNotReady = "player-not-ready"
	evGetGameResult  = "get-game-result"
)

// Outbound events
const (
	evAck          = "ack"
	evConnected    = "connected"
	evError        = "error"
	evRoomNotFound = "room-not-found"
	evUpdateLobby  = "update-lobby"
	evKicked       = "kicked"
	evRoomData     = "room-data"
	evGameStarted  = "game-started"
	evStartError   = "start-error"
	evGameResult   = "game-result"
)

var (
	errMissingRoom  = errors.New("missing room")
	errMissingEvent = errors.New("missing event")
)

// envelope is the frame exchanged in both directions over the websocket.
// Frames carrying an ack id expect an "ack" frame with the same id in reply.
type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

type outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
	Ack   *int64 `json:"ack,omitempty"`
}

type payload interface {
	validate() error
}

type checkRoomRequest struct {
	RoomCode string `json:"roomCode"`
	Game     string `json:"game"`
}

func (r checkRoomRequest) validate() error {
	if r.RoomCode == "" {
		return errMissingRoom
	}
	return nil
}

type checkRoomReply struct {
	Exists       bool `json:"exists"`
	GameMismatch bool `json:"gameMismatch"`
}

type playerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

type joinRoomRequest struct {
	Room   string     `json:"room"`
	Player playerInfo `json:"player"`
	Game   string     `json:"game"`
	Role   string     `json:"role"`
}

func (r joinRoomRequest) validate() error {
	if r.Room == "" {
		return errMissingRoom
	}
	if r.Player.ID == "" {
		return errors.New("missing player id")
	}
	return nil
}

type leaveRoomRequest struct {
	Room     string `json:"room"`
	PlayerID string `json:"playerId"`
}

func (r leaveRoomRequest) validate() error {
	if r.Room == "" {
		return errMissingRoom
	}
	return nil
}

type kickPlayerRequest struct {
	Room               string `json:"room"`
	ConnectionIDToKick string `json:"connectionIdToKick"`
}

func (r kickPlayerRequest) validate() error {
	if r.Room == "" {
		return errMissingRoom
	}
	if r.ConnectionIDToKick == "" {
		return errors.New("missing connection id")
	}
	return nil
}

// roomRequest is shared by events that only name a room.
type roomRequest struct {
	Room string `json:"room"`
}

func (r roomRequest) validate() error {
	if r.Room == "" {
		return errMissingRoom
	}
	return nil
}

type playerReadyRequest struct {
	Room       string       `json:"room"`
	PlayerID   string       `json:"playerId"`
	PlayerName string       `json:"playerName"`
	Cards      []games.Card `json:"cards"`
}

func (r playerReadyRequest) validate() error {
	if r.Room == "" {
		return errMissingRoom
	}
	if r.PlayerID == "" {
		return errors.New("missing player id")
	}
	return nil
}

type playerNotReadyRequest struct {
	Room     string `json:"room"`
	PlayerID string `json:"playerId"`
}

func (r playerNotReadyRequest) validate() error {
	if r.Room == "" {
		return errMissingRoom
	}
	return nil
}

type lobbyMessage struct {
	Players []Player `json:"players"`
	Game    string   `json:"game"`
}

type gameStartedMessage struct {
	Player Player `json:"player"`
	Game   string `json:"game"`
}

type errorMessage struct {
	Message string `json:"message"`
}

type connectedMessage struct {
	ConnectionID string `json:"connectionId"`
}

// decode unmarshals raw into v and checks the fields the hub relies on.
func decode[T payload](raw json.RawMessage) (T, error) {
	var v T

	if len(raw) == 0 {
		return v, errors.New("missing data")
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, err
	}

	return v, v.validate()
}
