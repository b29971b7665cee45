package games

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum_UnknownGame(t *testing.T) {
	entries := []Entry{{
		PlayerID: "p1",
		Submission: Submission{
			Name:  "Ada",
			Icon:  "cat",
			Cards: []Card{{Key: "x", Value: "5"}, {Key: "y", Value: "3"}},
		},
	}}

	got := Tally("unknown-game", entries)

	require.Len(t, got.Players, 1)
	p := got.Players[0]
	assert.Equal(t, 8, p.Score)
	assert.Equal(t, []Detail{{Label: "x", Value: 5}, {Label: "y", Value: 3}}, p.Details)
	assert.Equal(t, "Ada", p.Name)
	assert.Equal(t, "cat", p.Icon)
	assert.False(t, got.HasTies)
}

func TestSum_PrefersCardLabel(t *testing.T) {
	entries := []Entry{{
		PlayerID: "p1",
		Submission: Submission{Cards: []Card{
			{Key: "eggs", Label: "Eggs", Value: "4"},
			{Key: "birds", Value: "oops"},
		}},
	}}

	got := For(Wingspan).Score(entries)

	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].Score)
	assert.Equal(t, []Detail{{Label: "Eggs", Value: 4}, {Label: "birds", Value: 0}}, got[0].Details)
}

func TestTally_ExtremeValuesRankCorrectly(t *testing.T) {
	entries := []Entry{
		{PlayerID: "low", Submission: Submission{Name: "low", Cards: []Card{{Key: "birds", Value: "-5"}}}},
		{PlayerID: "high", Submission: Submission{Name: "high", Cards: []Card{{Key: "birds", Value: "9223372036854775807"}}}},
	}

	got := Tally(Wingspan, entries)

	w, ok := got.Winner()
	require.True(t, ok)
	assert.Equal(t, "high", w.ID)
	assert.Equal(t, []int{1, 2}, ranksOf(got))
}
