package main

import (
	"crypto/rand"
	"slices"
	"time"

	"github.com/Seednode/tabletally/games"
)

const (
	roomCodeLength   = 4
	roomCodeChars    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	roomCodeAttempts = 8

	minPlayersToStart = 2
	defaultIcon       = "ghost"

	roleHost = "host"
)

// Stage is a room's position in its lifecycle. Rooms only move forward.
type Stage string

const (
	StageLobby       Stage = "lobby"
	StageInput       Stage = "input"
	StageLeaderboard Stage = "leaderboard"
)

var stageOrder = map[Stage]int{
	StageLobby:       0,
	StageInput:       1,
	StageLeaderboard: 2,
}

// Player is a member of a room. ID is chosen by the client and survives
// reconnects, ConnectionID is rebound to whichever connection last joined.
type Player struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Icon         string `json:"icon"`
	ConnectionID string `json:"connectionId"`
}

// Result is the outcome of a finished game, computed once per room.
type Result struct {
	WinnerName string         `json:"winnerName"`
	WinnerIcon string         `json:"winnerIcon"`
	Score      int            `json:"score"`
	Players    []games.Ranked `json:"players"`
	HasTies    bool           `json:"hasTies"`
	Game       string         `json:"game"`
}

type Room struct {
	Code             string
	Game             string
	Stage            Stage
	Players          []*Player
	Submissions      map[string]games.Submission
	Result           *Result
	CleanupScheduled bool
	ResultTimestamp  time.Time
	CreatedAt        time.Time

	// connection ids that receive this room's broadcasts
	conns map[string]struct{}
}

func newRoom(code, game string, now time.Time) *Room {
	return &Room{
		Code:        code,
		Game:        game,
		Stage:       StageLobby,
		Submissions: make(map[string]games.Submission),
		CreatedAt:   now,
		conns:       make(map[string]struct{}),
	}
}

func (r *Room) player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerByConn(connID string) *Player {
	for _, p := range r.Players {
		if p.ConnectionID == connID {
			return p
		}
	}
	return nil
}

// removePlayers drops every player matching fn along with their submissions
// and returns what was removed.
func (r *Room) removePlayers(fn func(*Player) bool) []*Player {
	var removed []*Player

	r.Players = slices.DeleteFunc(r.Players, func(p *Player) bool {
		if !fn(p) {
			return false
		}
		removed = append(removed, p)
		delete(r.Submissions, p.ID)
		return true
	})

	return removed
}

// advance moves the room to stage unless it is already there or further.
func (r *Room) advance(stage Stage) bool {
	if stageOrder[stage] <= stageOrder[r.Stage] {
		return false
	}
	r.Stage = stage
	return true
}

// complete reports whether every current player has submitted.
func (r *Room) complete() bool {
	if len(r.Players) == 0 || len(r.Submissions) < len(r.Players) {
		return false
	}

	for _, p := range r.Players {
		if _, ok := r.Submissions[p.ID]; !ok {
			return false
		}
	}

	return true
}

// entries lists submissions in player order.
func (r *Room) entries() []games.Entry {
	out := make([]games.Entry, 0, len(r.Players))

	for _, p := range r.Players {
		s, ok := r.Submissions[p.ID]
		if !ok {
			continue
		}

		s.Cards = slices.Clone(s.Cards)
		out = append(out, games.Entry{PlayerID: p.ID, Submission: s})
	}

	return out
}

// snapshot copies the player list for use outside the hub.
func (r *Room) snapshot() []Player {
	out := make([]Player, 0, len(r.Players))
	for _, p := range r.Players {
		out = append(out, *p)
	}
	return out
}

func (r *Room) attach(connID string) { r.conns[connID] = struct{}{} }

func (r *Room) detach(connID string) { delete(r.conns, connID) }

func (r *Room) connections() []string {
	out := make([]string, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

// departure describes a room affected by a player leaving.
type departure struct {
	room    *Room
	removed []*Player
	deleted bool
}

// Registry holds every live room. It is not safe for concurrent use; the
// hub goroutine is its only caller.
type Registry struct {
	rooms map[string]*Room
	now   func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		now:   time.Now,
	}
}

func (g *Registry) Len() int { return len(g.rooms) }

func (g *Registry) Find(code string) (*Room, error) {
	room, ok := g.rooms[code]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Check reports whether code names a room hosting game.
func (g *Registry) Check(code, game string) error {
	room, err := g.Find(code)
	if err != nil {
		return err
	}
	if room.Game != game {
		return ErrGameMismatch
	}
	return nil
}

func (g *Registry) Create(code, game string) (*Room, error) {
	if _, ok := g.rooms[code]; ok {
		return nil, ErrAlreadyExists
	}

	room := newRoom(code, game, g.now())
	g.rooms[code] = room

	return room, nil
}

// Join adds p to the room, creating the room first when a host joins a code
// that is not in use. A player already in the room is rebound to p's
// connection instead of being added twice.
func (g *Registry) Join(code, game, role string, p Player) (*Room, error) {
	room, err := g.Find(code)
	if err != nil {
		if role != roleHost {
			return nil, err
		}
		if room, err = g.Create(code, game); err != nil {
			return nil, err
		}
	}

	if existing := room.player(p.ID); existing != nil {
		if existing.ConnectionID != "" && existing.ConnectionID != p.ConnectionID {
			room.detach(existing.ConnectionID)
		}
		existing.ConnectionID = p.ConnectionID
	} else {
		if p.Icon == "" {
			p.Icon = defaultIcon
		}
		room.Players = append(room.Players, &p)
	}

	room.attach(p.ConnectionID)

	return room, nil
}

func (g *Registry) Leave(code, playerID string) (departure, error) {
	room, err := g.Find(code)
	if err != nil {
		return departure{}, err
	}

	removed := room.removePlayers(func(p *Player) bool { return p.ID == playerID })
	for _, p := range removed {
		room.detach(p.ConnectionID)
	}

	return g.settle(room, removed), nil
}

func (g *Registry) Kick(code, connID string) (departure, error) {
	room, err := g.Find(code)
	if err != nil {
		return departure{}, err
	}

	removed := room.removePlayers(func(p *Player) bool { return p.ConnectionID == connID })
	room.detach(connID)

	return g.settle(room, removed), nil
}

// Disconnect removes the player bound to connID from every room and stops
// the connection receiving room broadcasts.
func (g *Registry) Disconnect(connID string) []departure {
	var out []departure

	for _, room := range g.rooms {
		room.detach(connID)

		removed := room.removePlayers(func(p *Player) bool { return p.ConnectionID == connID })
		if len(removed) == 0 {
			continue
		}

		out = append(out, g.settle(room, removed))
	}

	return out
}

// Remove deletes room and reports whether it was still registered. A newer
// room that has since taken the same code is left alone.
func (g *Registry) Remove(room *Room) bool {
	if current, ok := g.rooms[room.Code]; !ok || current != room {
		return false
	}
	delete(g.rooms, room.Code)
	return true
}

// settle deletes room if the last player just left it.
func (g *Registry) settle(room *Room, removed []*Player) departure {
	d := departure{room: room, removed: removed}

	if len(room.Players) == 0 {
		delete(g.rooms, room.Code)
		d.deleted = true
	}

	return d
}

// NewCode picks a random room code, retrying a few times to avoid codes
// already in use. The code is not reserved.
func (g *Registry) NewCode() (string, error) {
	var code string

	for range roomCodeAttempts {
		buf := make([]byte, roomCodeLength)
		if _, err := rand.Read(buf); err != nil {
			return "", err
		}

		out := make([]byte, roomCodeLength)
		for i := range out {
			out[i] = roomCodeChars[int(buf[i])%len(roomCodeChars)]
		}
		code = string(out)

		if _, exists := g.rooms[code]; !exists {
			break
		}
	}

	return code, nil
}
