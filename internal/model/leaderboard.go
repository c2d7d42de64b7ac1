package model

import "sort"

// LeaderboardEntry is one ranked row of a platform or global board.
// PlatformID is empty on the global board.
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	UserID           string  `json:"user_id"`
	TelegramID       int64   `json:"telegram_id"`
	Username         string  `json:"username"`
	FirstName        string  `json:"first_name"`
	PhotoURL         string  `json:"photo_url"`
	PlatformID       string  `json:"platform_id,omitempty"`
	PlatformUsername string  `json:"platform_username,omitempty"`
	Wins             int     `json:"wins"`
	Losses           int     `json:"losses"`
	GamesPlayed      int     `json:"games_played"`
	WinRate          float64 `json:"win_rate"`
	IsVerified       bool    `json:"is_verified"`
	HasPremium       bool    `json:"has_premium"`
}

// RanksBefore reports whether a is ranked ahead of b: higher win rate, then
// more wins, then more games played, then the lower user id.
func RanksBefore(a, b LeaderboardEntry) bool {
	ar, br := WinRate(a.Wins, a.Losses), WinRate(b.Wins, b.Losses)
	if ar != br {
		return ar > br
	}
	if a.Wins != b.Wins {
		return a.Wins > b.Wins
	}
	ag, bg := GamesPlayed(a.Wins, a.Losses), GamesPlayed(b.Wins, b.Losses)
	if ag != bg {
		return ag > bg
	}
	return a.UserID < b.UserID
}

// RankEntries sorts entries into leaderboard order and assigns 1-based ranks.
// Derived columns are recomputed from wins and losses.
func RankEntries(entries []LeaderboardEntry) {
	for i := range entries {
		entries[i].GamesPlayed = GamesPlayed(entries[i].Wins, entries[i].Losses)
		entries[i].WinRate = WinRate(entries[i].Wins, entries[i].Losses)
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return RanksBefore(entries[i], entries[j])
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
}

// Page returns entries[offset:offset+limit], clamped to the slice bounds.
func Page(entries []LeaderboardEntry, offset, limit int) []LeaderboardEntry {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(entries) {
		return []LeaderboardEntry{}
	}
	end := offset + limit
	if limit < 0 || end > len(entries) {
		end = len(entries)
	}
	return entries[offset:end]
}

// UserRank is a player's position on one board.
type UserRank struct {
	Board      string            `json:"board"`
	Entry      *LeaderboardEntry `json:"entry"`
	TotalRanks int               `json:"total_ranked"`
}
