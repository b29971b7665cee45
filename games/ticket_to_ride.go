package games

import (
	"fmt"
	"strings"
)

const (
	ttrTotalPoints       = "totalPoints"
	ttrLongestRoute      = "longestRoute"
	ttrDestinationPrefix = "destinationTicket"

	// Awarded to every player holding the longest route, ties included.
	longestRouteBonus = 10
)

type ticketToRide struct{}

func (ticketToRide) Score(entries []Entry) []Scored {
	raw := make([]int, len(entries))
	longest := make([]int, len(entries))

	maxLongest := 0
	for i, e := range entries {
		for _, c := range e.Cards {
			v := parseValue(c.Value)

			switch {
			case c.Key == ttrTotalPoints:
				raw[i] += v
			case c.Key == ttrLongestRoute:
				longest[i] = v
			case strings.HasPrefix(c.Key, ttrDestinationPrefix):
				raw[i] += v
			}
		}

		if i == 0 || longest[i] > maxLongest {
			maxLongest = longest[i]
		}
	}

	out := make([]Scored, 0, len(entries))
	for i, e := range entries {
		details := make([]Detail, 0, len(e.Cards)+1)

		for _, c := range e.Cards {
			v := parseValue(c.Value)
			if v == 0 {
				continue
			}

			switch {
			case c.Key == ttrTotalPoints:
				details = append(details, Detail{Label: "Final Score", Value: v})
			case c.Key == ttrLongestRoute:
				details = append(details, Detail{Label: "Longest Route Length", Value: v, NonScoring: true})
			case strings.HasPrefix(c.Key, ttrDestinationPrefix):
				details = append(details, Detail{Label: "Destination Ticket", Value: v})
			}
		}

		score := raw[i]
		if longest[i] == maxLongest {
			score += longestRouteBonus
			details = append(details, Detail{
				Label: fmt.Sprintf("Longest Route Bonus (%d)", longest[i]),
				Value: longestRouteBonus,
			})
		}

		out = append(out, Scored{
			ID:      e.PlayerID,
			Name:    e.Name,
			Icon:    e.Icon,
			Score:   score,
			Details: details,
		})
	}

	return out
}
