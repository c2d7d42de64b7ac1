package repository

import (
	"context"
	"errors"
	"fmt"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StatsRepository defines methods for accessing per-platform stats and their evidence.
type StatsRepository interface {
	// Upsert writes wins/losses for (userID, platformID). Changed numbers reset verification to pending.
	Upsert(ctx context.Context, userID, platformID string, wins, losses int, notes *string) (*model.Stats, error)
	GetByID(ctx context.Context, id string) (*model.Stats, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Stats, error)
	SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus, verifiedBy *int64) (*model.Stats, error)
	Delete(ctx context.Context, id string) (bool, error)
	AddEvidence(ctx context.Context, e *model.StatsEvidence) error
	ListEvidence(ctx context.Context, userID string) ([]*model.StatsEvidence, error)
}

type statsRepo struct {
	pool *pgxpool.Pool
}

func NewStatsRepo(pool *pgxpool.Pool) StatsRepository {
	return &statsRepo{pool: pool}
}

const statsColumns = `id, user_id, platform_id, wins, losses, games_played, win_rate::float8,
       verification_status, verified_by, verified_at, notes, created_at, updated_at`

func scanStats(row pgx.Row) (*model.Stats, error) {
	var s model.Stats
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.PlatformID,
		&s.Wins,
		&s.Losses,
		&s.GamesPlayed,
		&s.WinRate,
		&s.VerificationStatus,
		&s.VerifiedBy,
		&s.VerifiedAt,
		&s.Notes,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *statsRepo) Upsert(ctx context.Context, userID, platformID string, wins, losses int, notes *string) (*model.Stats, error) {
	q := `
        INSERT INTO stats (user_id, platform_id, wins, losses, notes)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (user_id, platform_id) DO UPDATE
        SET wins = EXCLUDED.wins,
            losses = EXCLUDED.losses,
            notes = COALESCE(EXCLUDED.notes, stats.notes),
            verification_status = CASE
                WHEN stats.wins = EXCLUDED.wins AND stats.losses = EXCLUDED.losses
                THEN stats.verification_status ELSE 'pending' END,
            verified_by = CASE
                WHEN stats.wins = EXCLUDED.wins AND stats.losses = EXCLUDED.losses
                THEN stats.verified_by ELSE NULL END,
            verified_at = CASE
                WHEN stats.wins = EXCLUDED.wins AND stats.losses = EXCLUDED.losses
                THEN stats.verified_at ELSE NULL END,
            updated_at = NOW()
        RETURNING ` + statsColumns
	s, err := scanStats(r.pool.QueryRow(ctx, q, userID, platformID, wins, losses, notes))
	if err != nil {
		return nil, fmt.Errorf("upsert stats for user %s on %s: %w", userID, platformID, err)
	}
	return s, nil
}

func (r *statsRepo) GetByID(ctx context.Context, id string) (*model.Stats, error) {
	s, err := scanStats(r.pool.QueryRow(ctx, `SELECT `+statsColumns+` FROM stats WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch stats %s: %w", id, err)
	}
	return s, nil
}

func (r *statsRepo) ListByUser(ctx context.Context, userID string) ([]*model.Stats, error) {
	q := `SELECT ` + statsColumns + ` FROM stats WHERE user_id = $1 ORDER BY platform_id`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list stats for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*model.Stats
	for rows.Next() {
		s, err := scanStats(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *statsRepo) SetVerificationStatus(ctx context.Context, id string, status model.VerificationStatus, verifiedBy *int64) (*model.Stats, error) {
	q := `
        UPDATE stats
        SET verification_status = $2,
            verified_by = $3,
            verified_at = NOW(),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + statsColumns
	s, err := scanStats(r.pool.QueryRow(ctx, q, id, string(status), verifiedBy))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("set verification status of stats %s: %w", id, err)
	}
	return s, nil
}

func (r *statsRepo) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stats WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete stats %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *statsRepo) AddEvidence(ctx context.Context, e *model.StatsEvidence) error {
	const q = `
        INSERT INTO stats_evidence (user_id, platform_id, storage_path)
        VALUES ($1, $2, $3)
        RETURNING id, created_at
    `
	if err := r.pool.QueryRow(ctx, q, e.UserID, e.PlatformID, e.StoragePath).Scan(&e.ID, &e.CreatedAt); err != nil {
		return fmt.Errorf("insert evidence %s: %w", e.StoragePath, err)
	}
	return nil
}

func (r *statsRepo) ListEvidence(ctx context.Context, userID string) ([]*model.StatsEvidence, error) {
	const q = `
        SELECT id, user_id, platform_id, storage_path, created_at
        FROM stats_evidence
        WHERE user_id = $1
        ORDER BY created_at DESC
    `
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list evidence for user %s: %w", userID, err)
	}
	defer rows.Close()

	var out []*model.StatsEvidence
	for rows.Next() {
		var e model.StatsEvidence
		if err := rows.Scan(&e.ID, &e.UserID, &e.PlatformID, &e.StoragePath, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
