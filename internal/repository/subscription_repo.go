package repository

import (
	"context"
	"errors"
	"fmt"

	"dominoboard/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SubscriptionRepository defines methods for accessing subscription data.
type SubscriptionRepository interface {
	// GetByUserID returns the subscription that decides the user's premium state, see model.CurrentSubscription.
	GetByUserID(ctx context.Context, userID string) (*model.Subscription, error)
	GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error)
	// Upsert keeps one row per Stripe subscription.
	Upsert(ctx context.Context, sub *model.Subscription) error
}

type subscriptionRepo struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepo creates a new SubscriptionRepository.
func NewSubscriptionRepo(pool *pgxpool.Pool) SubscriptionRepository {
	return &subscriptionRepo{pool: pool}
}

const subscriptionColumns = `id, user_id, stripe_subscription_id, stripe_customer_id, price_id, status,
       current_period_start, current_period_end, cancel_at_period_end, created_at, updated_at`

func scanSubscription(row pgx.Row) (*model.Subscription, error) {
	var s model.Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.StripeSubscriptionID,
		&s.StripeCustomerID,
		&s.PriceID,
		&s.Status,
		&s.CurrentPeriodStart,
		&s.CurrentPeriodEnd,
		&s.CancelAtPeriodEnd,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *subscriptionRepo) GetByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch subscriptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	var subs []*model.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription for user %s: %w", userID, err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch subscriptions for user %s: %w", userID, err)
	}
	return model.CurrentSubscription(subs), nil
}

func (r *subscriptionRepo) GetByStripeID(ctx context.Context, stripeSubscriptionID string) (*model.Subscription, error) {
	s, err := scanSubscription(r.pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM subscriptions WHERE stripe_subscription_id = $1`, stripeSubscriptionID))
	if err != nil {
		return nil, fmt.Errorf("fetch subscription %s: %w", stripeSubscriptionID, err)
	}
	return s, nil
}

func (r *subscriptionRepo) Upsert(ctx context.Context, sub *model.Subscription) error {
	q := `
        INSERT INTO subscriptions (user_id, stripe_subscription_id, stripe_customer_id, price_id, status,
                                   current_period_start, current_period_end, cancel_at_period_end)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (stripe_subscription_id) DO UPDATE
        SET user_id = EXCLUDED.user_id,
            stripe_customer_id = EXCLUDED.stripe_customer_id,
            price_id = EXCLUDED.price_id,
            status = EXCLUDED.status,
            current_period_start = EXCLUDED.current_period_start,
            current_period_end = EXCLUDED.current_period_end,
            cancel_at_period_end = EXCLUDED.cancel_at_period_end,
            updated_at = NOW()
        RETURNING ` + subscriptionColumns
	saved, err := scanSubscription(r.pool.QueryRow(ctx, q,
		sub.UserID,
		sub.StripeSubscriptionID,
		sub.StripeCustomerID,
		sub.PriceID,
		string(sub.Status),
		sub.CurrentPeriodStart,
		sub.CurrentPeriodEnd,
		sub.CancelAtPeriodEnd,
	))
	if err != nil {
		return fmt.Errorf("upsert subscription %s for user %s: %w", sub.StripeSubscriptionID, sub.UserID, err)
	}
	*sub = *saved
	return nil
}
