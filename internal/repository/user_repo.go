package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository interface {
	UpsertFromTelegram(ctx context.Context, p model.TelegramProfile) (*model.User, error)
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error)
	UpdateProfile(ctx context.Context, telegramID int64, upd model.ProfileUpdate) (*model.User, error)
	SetPremium(ctx context.Context, userID string, premium bool, expiry *time.Time) error
	UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error
	SetVerified(ctx context.Context, telegramID int64, verified bool) (*model.User, error)
	ClearExpiredPremium(ctx context.Context, now time.Time) ([]*model.User, error)
}

type userRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) UserRepository {
	return &userRepo{pool: pool}
}

const userColumns = `id, telegram_id, COALESCE(telegram_username, ''), first_name, COALESCE(last_name, ''),
       COALESCE(photo_url, ''), platform_id, platform_username, is_premium, premium_expiry,
       social_links, is_verified, stripe_customer_id, created_at, updated_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.TelegramID,
		&u.TelegramUsername,
		&u.FirstName,
		&u.LastName,
		&u.PhotoURL,
		&u.PlatformID,
		&u.PlatformUsername,
		&u.IsPremium,
		&u.PremiumExpiry,
		&u.SocialLinks,
		&u.IsVerified,
		&u.StripeCustomerID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if u.SocialLinks == nil {
		u.SocialLinks = map[string]string{}
	}
	return &u, nil
}

// getOne returns nil, nil when the query matches no row.
func (r *userRepo) getOne(ctx context.Context, q string, args ...any) (*model.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, q, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return u, err
}

// UpsertFromTelegram creates the user on first auth and refreshes the Telegram identity fields afterwards.
func (r *userRepo) UpsertFromTelegram(ctx context.Context, p model.TelegramProfile) (*model.User, error) {
	q := `
        INSERT INTO users (telegram_id, telegram_username, first_name, last_name, photo_url)
        VALUES ($1, NULLIF($2, ''), $3, NULLIF($4, ''), NULLIF($5, ''))
        ON CONFLICT (telegram_id) DO UPDATE
        SET telegram_username = EXCLUDED.telegram_username,
            first_name = EXCLUDED.first_name,
            last_name = EXCLUDED.last_name,
            photo_url = EXCLUDED.photo_url,
            updated_at = NOW()
        RETURNING ` + userColumns
	u, err := scanUser(r.pool.QueryRow(ctx, q, p.TelegramID, p.Username, p.FirstName, p.LastName, p.PhotoURL))
	if err != nil {
		return nil, fmt.Errorf("upsert user %d: %w", p.TelegramID, err)
	}
	return u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", id, err)
	}
	return u, nil
}

func (r *userRepo) GetByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE telegram_id = $1`, telegramID)
	if err != nil {
		return nil, fmt.Errorf("fetch user by telegram id %d: %w", telegramID, err)
	}
	return u, nil
}

func (r *userRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*model.User, error) {
	u, err := r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE stripe_customer_id = $1`, customerID)
	if err != nil {
		return nil, fmt.Errorf("fetch user by stripe customer %s: %w", customerID, err)
	}
	return u, nil
}

func (r *userRepo) UpdateProfile(ctx context.Context, telegramID int64, upd model.ProfileUpdate) (*model.User, error) {
	q := `
        UPDATE users
        SET platform_id = COALESCE($2, platform_id),
            platform_username = COALESCE($3, platform_username),
            social_links = COALESCE($4::jsonb, social_links),
            updated_at = NOW()
        WHERE telegram_id = $1
        RETURNING ` + userColumns
	var links *string
	if upd.SocialLinks != nil {
		raw, err := json.Marshal(upd.SocialLinks)
		if err != nil {
			return nil, fmt.Errorf("marshal social links: %w", err)
		}
		s := string(raw)
		links = &s
	}
	u, err := r.getOne(ctx, q, telegramID, upd.PlatformID, upd.PlatformUsername, links)
	if err != nil {
		return nil, fmt.Errorf("update profile of user %d: %w", telegramID, err)
	}
	return u, nil
}

func (r *userRepo) SetPremium(ctx context.Context, userID string, premium bool, expiry *time.Time) error {
	const q = `UPDATE users SET is_premium = $2, premium_expiry = $3, updated_at = NOW() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, premium, expiry); err != nil {
		return fmt.Errorf("set premium for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) UpdateStripeCustomerID(ctx context.Context, userID, customerID string) error {
	const q = `UPDATE users SET stripe_customer_id = $2, updated_at = NOW() WHERE id = $1`
	if _, err := r.pool.Exec(ctx, q, userID, customerID); err != nil {
		return fmt.Errorf("store stripe customer id for user %s: %w", userID, err)
	}
	return nil
}

func (r *userRepo) SetVerified(ctx context.Context, telegramID int64, verified bool) (*model.User, error) {
	q := `UPDATE users SET is_verified = $2, updated_at = NOW() WHERE telegram_id = $1 RETURNING ` + userColumns
	u, err := r.getOne(ctx, q, telegramID, verified)
	if err != nil {
		return nil, fmt.Errorf("set verified badge for user %d: %w", telegramID, err)
	}
	return u, nil
}

// expiredPremiumFilter matches users whose premium flag outlived its expiry and
// who hold no subscription that still grants premium.
const expiredPremiumFilter = `
        u.is_premium
        AND u.premium_expiry IS NOT NULL
        AND u.premium_expiry <= $1
        AND NOT EXISTS (
            SELECT 1 FROM subscriptions s
            WHERE s.user_id = u.id
              AND s.status IN ('active', 'trialing', 'past_due')
              AND s.current_period_end > $1
        )`

// ClearExpiredPremium resets the premium flag of expired users and returns them.
func (r *userRepo) ClearExpiredPremium(ctx context.Context, now time.Time) ([]*model.User, error) {
	q := `
        UPDATE users u
        SET is_premium = FALSE, updated_at = NOW()
        WHERE ` + expiredPremiumFilter + `
        RETURNING ` + userColumns
	return r.list(ctx, q, now)
}

func (r *userRepo) list(ctx context.Context, q string, args ...any) ([]*model.User, error) {
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}
