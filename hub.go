/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/Seednode/tabletally/games"
)

const inboxSize = 256

var errHubClosed = errors.New("hub is shutting down")

// Messages accepted by the hub's inbox.
type (
	register   struct{ client *Client }
	unregister struct{ client *Client }

	inbound struct {
		client *Client
		env    envelope
	}

	// malformed reports a frame that could not be decoded as an envelope.
	malformed struct {
		client *Client
		err    error
	}

	// inspection runs fn against the registry on the hub goroutine.
	inspection struct {
		fn   func(*Registry)
		done chan struct{}
	}
)

// Hub owns every room and every connection. All state changes happen on the
// goroutine running run, one inbox message at a time, so handlers never see
// a half-applied update from another event.
type Hub struct {
	log     *zap.SugaredLogger
	rooms   *Registry
	clients map[string]*Client
	cleanup *cleanupScheduler

	inbox chan any
	done  chan struct{}
}

func newHub(cfg *Config, log *zap.SugaredLogger) *Hub {
	h := &Hub{
		log:     log,
		rooms:   NewRegistry(),
		clients: make(map[string]*Client),
		inbox:   make(chan any, inboxSize),
		done:    make(chan struct{}),
	}

	h.cleanup = newCleanupScheduler(cfg.cleanupDelay, h.enqueue)

	return h
}

// enqueue hands msg to the hub, blocking until it is accepted or the hub
// has stopped.
func (h *Hub) enqueue(msg any) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.inbox <- msg:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-h.inbox:
			h.process(msg)
		}
	}
}

func (h *Hub) shutdown() {
	close(h.done)

	h.cleanup.stop()

	for id, c := range h.clients {
		close(c.send)
		delete(h.clients, id)
	}

	h.log.Debugf("ROOMS: Hub stopped with %d room(s) open", h.rooms.Len())
}

func (h *Hub) process(msg any) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Errorf("ROOMS: Recovered from panic while handling %T: %v", msg, r)
		}
	}()

	switch m := msg.(type) {
	case register:
		h.clients[m.client.id] = m.client
		h.send(m.client, outbound{Event: evConnected, Data: connectedMessage{ConnectionID: m.client.id}})
		h.log.Debugf("ROOMS: Connection %s opened", m.client.id)

	case unregister:
		h.disconnect(m.client)

	case inbound:
		h.dispatch(m.client, m.env)

	case malformed:
		h.log.Debugf("ROOMS: Malformed frame from %s: %v", m.client.id, m.err)
		h.send(m.client, outbound{Event: evError, Data: errorMessage{Message: "Malformed message."}})

	case cleanupDue:
		h.expire(m)

	case inspection:
		defer close(m.done)
		m.fn(h.rooms)
	}
}

// inspect runs fn on the hub goroutine and waits for it to finish.
func (h *Hub) inspect(fn func(*Registry)) bool {
	done := make(chan struct{})

	if !h.enqueue(inspection{fn: fn, done: done}) {
		return false
	}

	select {
	case <-done:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) newRoomCode() (string, error) {
	code, err := "", errHubClosed

	h.inspect(func(g *Registry) {
		code, err = g.NewCode()
	})

	return code, err
}

// handle decodes env and passes it to fn. A non-nil reply is returned to the
// sender when the event asked for an acknowledgement.
func handle[T payload](h *Hub, c *Client, env envelope, fn func(*Client, T) (any, error)) {
	var reply any

	req, err := decode[T](env.Data)
	if err == nil {
		reply, err = fn(c, req)
	}

	if err != nil {
		h.log.Debugf("ROOMS: Ignored %s from %s: %v", env.Event, c.id, err)

		if reply == nil {
			reply = errorMessage{Message: err.Error()}
		}
	}

	if env.Ack != nil {
		h.send(c, outbound{Event: evAck, Data: reply, Ack: env.Ack})
	}
}

func (h *Hub) dispatch(c *Client, env envelope) {
	switch env.Event {
	case evCheckRoom:
		handle(h, c, env, h.checkRoom)
	case evJoinRoom:
		handle(h, c, env, h.joinRoom)
	case evLeaveRoom:
		handle(h, c, env, h.leaveRoom)
	case evKickPlayer:
		handle(h, c, env, h.kickPlayer)
	case evGetRoomData:
		handle(h, c, env, h.getRoomData)
	case evStartGame:
		handle(h, c, env, h.startGame)
	case evPlayerReady:
		handle(h, c, env, h.playerReady)
	case evPlayerNotReady:
		handle(h, c, env, h.playerNotReady)
	case evGetGameResult:
		handle(h, c, env, h.getGameResult)
	default:
		h.log.Debugf("ROOMS: Unknown event %q from %s", env.Event, c.id)
	}
}

func (h *Hub) checkRoom(_ *Client, req checkRoomRequest) (any, error) {
	err := h.rooms.Check(req.RoomCode, req.Game)

	return checkRoomReply{
		Exists:       !errors.Is(err, ErrRoomNotFound),
		GameMismatch: errors.Is(err, ErrGameMismatch),
	}, nil
}

func (h *Hub) joinRoom(c *Client, req joinRoomRequest) (any, error) {
	room, err := h.rooms.Join(req.Room, req.Game, req.Role, Player{
		ID:           req.Player.ID,
		Name:         req.Player.Name,
		Icon:         req.Player.Icon,
		ConnectionID: c.id,
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) {
			h.send(c, outbound{Event: evRoomNotFound})
		}
		return nil, err
	}

	h.log.Infof("ROOMS: %q joined room %s (%s)", req.Player.Name, room.Code, room.Game)

	h.broadcastLobby(room)

	return nil, nil
}

func (h *Hub) leaveRoom(_ *Client, req leaveRoomRequest) (any, error) {
	d, err := h.rooms.Leave(req.Room, req.PlayerID)
	if err != nil {
		return nil, err
	}

	h.settle(d)

	return nil, nil
}

func (h *Hub) kickPlayer(_ *Client, req kickPlayerRequest) (any, error) {
	d, err := h.rooms.Kick(req.Room, req.ConnectionIDToKick)
	if err != nil {
		return nil, err
	}

	h.emit(req.ConnectionIDToKick, evKicked, nil)

	for _, p := range d.removed {
		h.log.Infof("ROOMS: %q was kicked from room %s", p.Name, req.Room)
	}

	h.settle(d)

	return nil, nil
}

func (h *Hub) getRoomData(c *Client, req roomRequest) (any, error) {
	room, err := h.rooms.Find(req.Room)
	if err != nil {
		return nil, err
	}

	h.send(c, outbound{Event: evRoomData, Data: lobbyMessage{Players: room.snapshot(), Game: room.Game}})

	return nil, nil
}

func (h *Hub) startGame(c *Client, req roomRequest) (any, error) {
	room, err := h.rooms.Find(req.Room)
	if err == nil && len(room.Players) < minPlayersToStart {
		err = ErrInsufficientPlayers
	}
	if err == nil && room.Stage == StageLeaderboard {
		err = ErrAlreadyFinished
	}

	if err != nil {
		h.send(c, outbound{Event: evStartError, Data: errorMessage{Message: startErrorText(err)}})
		return nil, err
	}

	if room.advance(StageInput) {
		h.log.Infof("ROOMS: Room %s started with %d players", room.Code, len(room.Players))
	}

	for _, p := range room.snapshot() {
		h.emit(p.ConnectionID, evGameStarted, gameStartedMessage{Player: p, Game: room.Game})
	}

	return nil, nil
}

func (h *Hub) playerReady(_ *Client, req playerReadyRequest) (any, error) {
	room, err := h.rooms.Find(req.Room)
	if err != nil {
		return nil, err
	}

	p := room.player(req.PlayerID)
	if p == nil {
		return nil, ErrNotMember
	}

	name := req.PlayerName
	if name == "" {
		name = p.Name
	}

	icon := p.Icon
	if icon == "" {
		icon = defaultIcon
	}

	room.Submissions[p.ID] = games.Submission{
		Name:  name,
		Icon:  icon,
		Cards: req.Cards,
	}

	h.log.Debugf("ROOMS: %q submitted %d card(s) in room %s", name, len(req.Cards), room.Code)

	h.score(room)

	return nil, nil
}

func (h *Hub) playerNotReady(_ *Client, req playerNotReadyRequest) (any, error) {
	room, err := h.rooms.Find(req.Room)
	if err != nil {
		return nil, err
	}

	if _, ok := room.Submissions[req.PlayerID]; ok {
		delete(room.Submissions, req.PlayerID)
		h.log.Debugf("ROOMS: Player %s withdrew their submission in room %s", req.PlayerID, room.Code)
	}

	return nil, nil
}

func (h *Hub) getGameResult(c *Client, req roomRequest) (any, error) {
	room, err := h.rooms.Find(req.Room)
	if err != nil {
		return nil, err
	}

	if room.Result == nil {
		return nil, ErrNoResult
	}

	h.send(c, outbound{Event: evGameResult, Data: room.Result})

	h.scheduleCleanup(room)

	return nil, nil
}

// score computes the room's result once every current player has submitted.
// A room is only ever scored once; later submissions are kept but ignored.
func (h *Hub) score(room *Room) {
	if room.Result != nil {
		return
	}

	if !room.complete() {
		h.log.Debugf("ROOMS: Room %s has %d/%d submissions", room.Code, len(room.Submissions), len(room.Players))
		return
	}

	standings := games.Tally(room.Game, room.entries())

	result := &Result{
		Players: standings.Players,
		HasTies: standings.HasTies,
		Game:    room.Game,
	}

	if winner, ok := standings.Winner(); ok {
		result.WinnerName = winner.Name
		result.WinnerIcon = winner.Icon
		result.Score = winner.Score
	}

	room.Result = result
	room.ResultTimestamp = h.rooms.now()
	room.advance(StageLeaderboard)

	h.log.Infof("ROOMS: Room %s finished, %q won with %d points", room.Code, result.WinnerName, result.Score)

	h.broadcast(room, evGameResult, result)

	h.scheduleCleanup(room)
}

func (h *Hub) scheduleCleanup(room *Room) {
	if room.CleanupScheduled {
		return
	}

	room.CleanupScheduled = true
	h.cleanup.schedule(room)

	h.log.Debugf("ROOMS: Room %s will be removed in %s", room.Code, h.cleanup.delay)
}

func (h *Hub) expire(due cleanupDue) {
	h.cleanup.fired(due.id)

	if !h.rooms.Remove(due.room) {
		h.log.Debugf("ROOMS: Room %s was already gone at cleanup", due.room.Code)
		return
	}

	h.log.Infof("ROOMS: Room %s cleaned up", due.room.Code)
}

// settle reacts to players leaving a room: the room is either gone, or its
// remaining members get a fresh lobby and may now all have submitted.
func (h *Hub) settle(d departure) {
	if d.deleted {
		h.log.Infof("ROOMS: Room %s closed, no players remain", d.room.Code)
		return
	}

	h.broadcastLobby(d.room)

	if len(d.room.Submissions) > 0 {
		h.score(d.room)
	}
}

func (h *Hub) disconnect(c *Client) {
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		close(c.send)
	}

	for _, d := range h.rooms.Disconnect(c.id) {
		for _, p := range d.removed {
			h.log.Infof("ROOMS: %q disconnected from room %s", p.Name, d.room.Code)
		}

		h.settle(d)
	}

	h.log.Debugf("ROOMS: Connection %s closed", c.id)
}

func (h *Hub) broadcastLobby(room *Room) {
	h.broadcast(room, evUpdateLobby, lobbyMessage{Players: room.snapshot(), Game: room.Game})
}

func (h *Hub) broadcast(room *Room, event string, data any) {
	for _, id := range room.connections() {
		h.emit(id, event, data)
	}
}

func (h *Hub) emit(connID, event string, data any) {
	c, ok := h.clients[connID]
	if !ok {
		return
	}

	h.send(c, outbound{Event: event, Data: data})
}

// send queues msg for c without blocking the hub. A client that cannot keep
// up is dropped; its read pump will notice the closed connection.
func (h *Hub) send(c *Client, msg outbound) {
	if _, ok := h.clients[c.id]; !ok {
		return
	}

	select {
	case c.send <- msg:
	default:
		h.log.Warnf("ROOMS: Dropping connection %s, send buffer full", c.id)
		delete(h.clients, c.id)
		close(c.send)
	}
}

func startErrorText(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientPlayers):
		return "At least 2 players are required to start the game."
	case errors.Is(err, ErrRoomNotFound):
		return "Room not found."
	case errors.Is(err, ErrAlreadyFinished):
		return "This game has already finished."
	default:
		return err.Error()
	}
}
