package games

import (
	"cmp"
	"slices"
)

// Ranked is a scored player with their final position.
type Ranked struct {
	Scored
	Rank int `json:"rank"`
}

// Standings is the ordered outcome of a game.
type Standings struct {
	Players []Ranked
	HasTies bool
}

// Winner returns the first ranked player.
func (s Standings) Winner() (Ranked, bool) {
	if len(s.Players) == 0 {
		return Ranked{}, false
	}

	return s.Players[0], true
}

// Rank orders players by descending score using standard competition
// ranking: tied players share a rank, and the next lower score takes its
// 1-based position, so three players tied for first are followed by 4th.
// Players with equal scores keep their input order.
func Rank(players []Scored) Standings {
	sorted := slices.Clone(players)
	slices.SortStableFunc(sorted, func(a, b Scored) int {
		return cmp.Compare(b.Score, a.Score)
	})

	ranked := make([]Ranked, 0, len(sorted))
	counts := make(map[int]int, len(sorted))
	rank := 0

	for i, p := range sorted {
		if i == 0 || p.Score != sorted[i-1].Score {
			rank = i + 1
		}

		ranked = append(ranked, Ranked{Scored: p, Rank: rank})
		counts[p.Score]++
	}

	hasTies := false
	for _, n := range counts {
		if n > 1 {
			hasTies = true
			break
		}
	}

	return Standings{Players: ranked, HasTies: hasTies}
}
