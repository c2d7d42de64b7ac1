package repository

import (
	"context"
	"fmt"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LeaderboardRepository reads the ranking views.
type LeaderboardRepository interface {
	Platform(ctx context.Context, platformID string) ([]model.LeaderboardEntry, error)
	Global(ctx context.Context) ([]model.LeaderboardEntry, error)
	// PremiumUsers returns the subset of userIDs whose premium is active now.
	PremiumUsers(ctx context.Context, userIDs []string) (map[string]bool, error)
}

type leaderboardRepo struct {
	pool *pgxpool.Pool
}

func NewLeaderboardRepo(pool *pgxpool.Pool) LeaderboardRepository {
	return &leaderboardRepo{pool: pool}
}

func (r *leaderboardRepo) Platform(ctx context.Context, platformID string) ([]model.LeaderboardEntry, error) {
	const q = `
        SELECT rank, user_id, telegram_id, username, first_name, photo_url, platform_id,
               platform_username, wins, losses, games_played, win_rate::float8, is_verified, has_premium
        FROM platform_leaderboard
        WHERE platform_id = $1
        ORDER BY rank
    `
	rows, err := r.pool.Query(ctx, q, platformID)
	if err != nil {
		return nil, fmt.Errorf("query platform leaderboard %s: %w", platformID, err)
	}
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.TelegramID, &e.Username, &e.FirstName, &e.PhotoURL,
			&e.PlatformID, &e.PlatformUsername, &e.Wins, &e.Losses, &e.GamesPlayed, &e.WinRate,
			&e.IsVerified, &e.HasPremium); err != nil {
			return nil, fmt.Errorf("scan platform leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *leaderboardRepo) Global(ctx context.Context) ([]model.LeaderboardEntry, error) {
	const q = `
        SELECT rank, user_id, telegram_id, username, first_name, photo_url,
               wins, losses, games_played, win_rate::float8, is_verified, has_premium
        FROM global_leaderboard
        ORDER BY rank
    `
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query global leaderboard: %w", err)
	}
	defer rows.Close()

	var out []model.LeaderboardEntry
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.Rank, &e.UserID, &e.TelegramID, &e.Username, &e.FirstName, &e.PhotoURL,
			&e.Wins, &e.Losses, &e.GamesPlayed, &e.WinRate, &e.IsVerified, &e.HasPremium); err != nil {
			return nil, fmt.Errorf("scan global leaderboard row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *leaderboardRepo) PremiumUsers(ctx context.Context, userIDs []string) (map[string]bool, error) {
	const q = `
        SELECT id::text
        FROM users
        WHERE id::text = ANY($1::text[])
          AND is_premium AND (premium_expiry IS NULL OR premium_expiry > NOW())
    `
	rows, err := r.pool.Query(ctx, q, userIDs)
	if err != nil {
		return nil, fmt.Errorf("query premium users: %w", err)
	}
	defer rows.Close()

	out := make(map[string]bool, len(userIDs))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan premium user: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}
