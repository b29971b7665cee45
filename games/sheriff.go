package games

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// Unit prices of the regular goods, contraband included.
var sheriffBasePrices = map[string]int{
	"gold":     1,
	"apples":   2,
	"bread":    3,
	"cheese":   3,
	"chicken":  4,
	"crossbow": 9,
	"mead":     7,
	"pepper":   6,
	"silk":     8,
}

type royalGood struct {
	price int
	base  string
}

// Royal goods are priced on their own and count double toward the
// King and Queen bonus of the good they belong to.
var sheriffRoyalGoods = map[string]royalGood{
	"goldenApples":      {price: 6, base: "apples"},
	"greenApples":       {price: 4, base: "apples"},
	"pumpernickelBread": {price: 9, base: "bread"},
	"ryeBread":          {price: 6, base: "bread"},
	"bleuCheese":        {price: 9, base: "cheese"},
	"goudaCheese":       {price: 6, base: "cheese"},
	"royalRooster":      {price: 8, base: "chicken"},
}

type kingQueen struct {
	good  string
	king  int
	queen int
}

var sheriffBonuses = []kingQueen{
	{good: "apples", king: 20, queen: 10},
	{good: "bread", king: 15, queen: 10},
	{good: "cheese", king: 15, queen: 10},
	{good: "chicken", king: 10, queen: 5},
}

type sheriffOfNottingham struct{}

func (sheriffOfNottingham) Score(entries []Entry) []Scored {
	counts := make([]map[string]int, len(entries))
	keys := make([][]string, len(entries))
	scores := make([]int, len(entries))
	titles := make([][]Detail, len(entries))

	for i, e := range entries {
		counts[i] = make(map[string]int, len(e.Cards))

		for _, c := range e.Cards {
			if _, seen := counts[i][c.Key]; !seen {
				keys[i] = append(keys[i], c.Key)
			}
			counts[i][c.Key] += parseValue(c.Value)
		}

		for key, n := range counts[i] {
			scores[i] += n * sheriffUnitPrice(key)
		}
	}

	for _, b := range sheriffBonuses {
		legal := make([]int, len(entries))
		for i := range entries {
			legal[i] = sheriffLegalCount(counts[i], b.good)
		}

		for _, award := range distributeKingQueen(b, legal) {
			scores[award.player] += award.value
			titles[award.player] = append(titles[award.player], Detail{
				Label: award.title,
				Value: award.value,
			})
		}
	}

	out := make([]Scored, 0, len(entries))
	for i, e := range entries {
		details := make([]Detail, 0, len(keys[i])+len(titles[i]))

		for _, key := range keys[i] {
			if v := counts[i][key] * sheriffUnitPrice(key); v > 0 {
				details = append(details, Detail{Label: goodLabel(key), Value: v})
			}
		}
		details = append(details, titles[i]...)

		out = append(out, Scored{
			ID:      e.PlayerID,
			Name:    e.Name,
			Icon:    e.Icon,
			Score:   scores[i],
			Details: details,
		})
	}

	return out
}

func sheriffUnitPrice(key string) int {
	if r, ok := sheriffRoyalGoods[key]; ok {
		return r.price
	}

	return sheriffBasePrices[key]
}

// sheriffLegalCount is the count used to rank players for good's bonus.
func sheriffLegalCount(counts map[string]int, good string) int {
	n := counts[good]

	for key, r := range sheriffRoyalGoods {
		if r.base == good {
			n += 2 * counts[key]
		}
	}

	return n
}

type bonusAward struct {
	player int
	title  string
	value  int
}

// distributeKingQueen hands out b's bonuses given each player's legal count.
// Players tied for the lead split king and queen together. Otherwise the
// leader is King and everyone at the next highest non-zero count splits
// the Queen bonus.
func distributeKingQueen(b kingQueen, legal []int) []bonusAward {
	if len(legal) == 0 {
		return nil
	}

	top := slices.Max(legal)
	if top == 0 {
		return nil
	}

	name := goodLabel(b.good)

	var leaders []int
	second := 0
	for i, n := range legal {
		switch {
		case n == top:
			leaders = append(leaders, i)
		case n > second:
			second = n
		}
	}

	var awards []bonusAward

	if len(leaders) > 1 {
		shared := (b.king + b.queen) / len(leaders)
		for _, i := range leaders {
			awards = append(awards, bonusAward{
				player: i,
				title:  fmt.Sprintf("Shared %s King/Queen", name),
				value:  shared,
			})
		}

		return awards
	}

	awards = append(awards, bonusAward{
		player: leaders[0],
		title:  name + " King",
		value:  b.king,
	})

	if second <= 0 {
		return awards
	}

	var queens []int
	for i, n := range legal {
		if n == second {
			queens = append(queens, i)
		}
	}

	shared := b.queen / len(queens)
	for _, i := range queens {
		awards = append(awards, bonusAward{
			player: i,
			title:  name + " Queen",
			value:  shared,
		})
	}

	return awards
}

// goodLabel turns a camelCase key such as "goldenApples" into "Golden Apples".
func goodLabel(key string) string {
	var b strings.Builder

	for i, r := range key {
		switch {
		case i == 0:
			b.WriteRune(unicode.ToUpper(r))
		case unicode.IsUpper(r):
			b.WriteRune(' ')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}

	return b.String()
}
