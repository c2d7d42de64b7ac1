package repository

import (
	"context"
	"errors"
	"fmt"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PlatformRepository interface {
	List(ctx context.Context) ([]*model.Platform, error)
	Get(ctx context.Context, id string) (*model.Platform, error)
}

type platformRepo struct {
	pool *pgxpool.Pool
}

func NewPlatformRepo(pool *pgxpool.Pool) PlatformRepository {
	return &platformRepo{pool: pool}
}

// List returns active platforms in display order.
func (r *platformRepo) List(ctx context.Context) ([]*model.Platform, error) {
	const q = `
        SELECT id, name, website_url, is_active, sort_order
        FROM platforms
        WHERE is_active
        ORDER BY sort_order, name
    `
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list platforms: %w", err)
	}
	defer rows.Close()

	var out []*model.Platform
	for rows.Next() {
		var p model.Platform
		if err := rows.Scan(&p.ID, &p.Name, &p.WebsiteURL, &p.IsActive, &p.SortOrder); err != nil {
			return nil, fmt.Errorf("scan platform: %w", err)
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func (r *platformRepo) Get(ctx context.Context, id string) (*model.Platform, error) {
	const q = `SELECT id, name, website_url, is_active, sort_order FROM platforms WHERE id = $1`
	var p model.Platform
	err := r.pool.QueryRow(ctx, q, id).Scan(&p.ID, &p.Name, &p.WebsiteURL, &p.IsActive, &p.SortOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch platform %s: %w", id, err)
	}
	return &p, nil
}
