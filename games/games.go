/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package games turns the score sheets players submit at the end of a board
// game into ranked standings.
//
// Each supported game provides a Strategy. Games without a dedicated
// Strategy fall back to summing every submitted card.
package games

import (
	"strconv"
	"strings"
)

// Game identifiers understood by the scoring engine.
const (
	TicketToRide = "ticket-to-ride"
	Sheriff      = "sheriff-of-nottingham"
	Wingspan     = "wingspan"
)

// Card is a single entry on a player's score sheet.
type Card struct {
	Key   string `json:"key"`
	Value string `json:"value"`
	Label string `json:"label,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// Submission is everything a player entered for the current game.
type Submission struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Cards []Card `json:"cards"`
}

// Entry pairs a submission with the player who sent it.
type Entry struct {
	PlayerID string
	Submission
}

// Detail is one line of a player's score breakdown.
type Detail struct {
	Label string `json:"label"`
	Value int    `json:"value"`

	// NonScoring marks lines shown for context only, which are not part
	// of the player's total.
	NonScoring bool `json:"nonScoring,omitempty"`
}

// Scored is a player's computed total before ranking.
type Scored struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Icon    string   `json:"icon"`
	Score   int      `json:"score"`
	Details []Detail `json:"details"`
}

// Strategy scores every entry of a finished game at once, since some games
// award bonuses based on how players compare to each other.
type Strategy interface {
	Score(entries []Entry) []Scored
}

var strategies = map[string]Strategy{
	TicketToRide: ticketToRide{},
	Sheriff:      sheriffOfNottingham{},
	Wingspan:     sum{},
}

// For returns the scoring strategy for game, or the default sum strategy
// when the game has no dedicated rules.
func For(game string) Strategy {
	if s, ok := strategies[game]; ok {
		return s
	}

	return sum{}
}

// Tally scores and ranks entries using the rules of game.
func Tally(game string, entries []Entry) Standings {
	return Rank(For(game).Score(entries))
}

// parseValue reads the leading integer of a card value, ignoring any
// trailing characters. Empty or non-numeric values count as zero.
func parseValue(value string) int {
	s := strings.TrimSpace(value)

	end := 0
	if end < len(s) && (s[end] == '-' || s[end] == '+') {
		end++
	}

	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	if end == digits {
		return 0
	}

	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0
	}

	return n
}
