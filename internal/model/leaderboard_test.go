package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(entries []LeaderboardEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.UserID
	}
	return out
}

func TestRankEntriesOrder(t *testing.T) {
	entries := []LeaderboardEntry{
		{UserID: "a", Wins: 5, Losses: 5},   // 0.5, 5 wins
		{UserID: "b", Wins: 9, Losses: 1},   // 0.9
		{UserID: "c", Wins: 10, Losses: 10}, // 0.5, 10 wins
		{UserID: "d", Wins: 0, Losses: 0},   // 0
		{UserID: "e", Wins: 1, Losses: 1},   // 0.5, 1 win
	}
	RankEntries(entries)

	assert.Equal(t, []string{"b", "c", "a", "e", "d"}, ids(entries))
	for i, e := range entries {
		assert.Equal(t, i+1, e.Rank)
	}
	assert.InDelta(t, 0.9, entries[0].WinRate, 1e-9)
	assert.Equal(t, 10, entries[0].GamesPlayed)
}

func TestRankEntriesTieBreaks(t *testing.T) {
	// Equal rate and wins: more games first, then lower user id.
	entries := []LeaderboardEntry{
		{UserID: "z", Wins: 0, Losses: 3},
		{UserID: "y", Wins: 0, Losses: 7},
		{UserID: "x", Wins: 0, Losses: 7},
	}
	RankEntries(entries)
	assert.Equal(t, []string{"x", "y", "z"}, ids(entries))
}

func TestRankEntriesIsTotalOrder(t *testing.T) {
	a := []LeaderboardEntry{
		{UserID: "1", Wins: 2, Losses: 2},
		{UserID: "2", Wins: 4, Losses: 4},
		{UserID: "3", Wins: 3, Losses: 1},
		{UserID: "4", Wins: 2, Losses: 2},
	}
	b := []LeaderboardEntry{a[3], a[1], a[0], a[2]}
	RankEntries(a)
	RankEntries(b)
	require.Equal(t, ids(a), ids(b))
}

func TestPage(t *testing.T) {
	entries := make([]LeaderboardEntry, 5)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	assert.Len(t, Page(entries, 0, 2), 2)
	assert.Equal(t, 5, Page(entries, 4, 10)[0].Rank)
	assert.Empty(t, Page(entries, 5, 10))
	assert.Len(t, Page(entries, -1, 3), 3)
}
