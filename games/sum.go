package games

// sum adds up every card a player submitted, with no bonuses.
type sum struct{}

func (sum) Score(entries []Entry) []Scored {
	out := make([]Scored, 0, len(entries))

	for _, e := range entries {
		total := 0
		details := make([]Detail, 0, len(e.Cards))

		for _, c := range e.Cards {
			v := parseValue(c.Value)
			total += v

			label := c.Label
			if label == "" {
				label = c.Key
			}
			details = append(details, Detail{Label: label, Value: v})
		}

		out = append(out, Scored{
			ID:      e.PlayerID,
			Name:    e.Name,
			Icon:    e.Icon,
			Score:   total,
			Details: details,
		})
	}

	return out
}
