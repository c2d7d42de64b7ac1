package repository

import (
	"context"
	"errors"
	"fmt"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type VerseRepository interface {
	Count(ctx context.Context) (int, error)
	// GetByOffset returns the verse at a zero-based position in id order.
	GetByOffset(ctx context.Context, offset int) (*model.Verse, error)
	Random(ctx context.Context) (*model.Verse, error)
}

type verseRepo struct {
	pool *pgxpool.Pool
}

func NewVerseRepo(pool *pgxpool.Pool) VerseRepository {
	return &verseRepo{pool: pool}
}

func (r *verseRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM bible_verses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count verses: %w", err)
	}
	return n, nil
}

func (r *verseRepo) GetByOffset(ctx context.Context, offset int) (*model.Verse, error) {
	const q = `SELECT id, reference, text, translation FROM bible_verses ORDER BY id OFFSET $1 LIMIT 1`
	return r.one(ctx, q, offset)
}

func (r *verseRepo) Random(ctx context.Context) (*model.Verse, error) {
	const q = `SELECT id, reference, text, translation FROM bible_verses ORDER BY random() LIMIT 1`
	return r.one(ctx, q)
}

func (r *verseRepo) one(ctx context.Context, q string, args ...any) (*model.Verse, error) {
	var v model.Verse
	err := r.pool.QueryRow(ctx, q, args...).Scan(&v.ID, &v.Reference, &v.Text, &v.Translation)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch verse: %w", err)
	}
	return &v, nil
}
