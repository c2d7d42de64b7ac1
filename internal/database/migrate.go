package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema, views and seed data. Every statement is idempotent.
// Queues are created with pgmq when the extension is available.
func Migrate(ctx context.Context, pool *pgxpool.Pool, queues ...string) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	if _, err := pool.Exec(ctx, views); err != nil {
		return fmt.Errorf("apply views: %w", err)
	}
	if _, err := pool.Exec(ctx, seed); err != nil {
		return fmt.Errorf("apply seed: %w", err)
	}
	if len(queues) == 0 {
		return nil
	}
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS pgmq"); err != nil {
		return fmt.Errorf("create pgmq extension: %w", err)
	}
	for _, q := range queues {
		if _, err := pool.Exec(ctx, "SELECT pgmq.create($1)", q); err != nil {
			return fmt.Errorf("create queue %s: %w", q, err)
		}
	}
	return nil
}

const schema = `
CREATE EXTENSION IF NOT EXISTS pgcrypto;

CREATE TABLE IF NOT EXISTS platforms (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    website_url TEXT,
    is_active   BOOLEAN NOT NULL DEFAULT TRUE,
    sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS users (
    id                 UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    telegram_id        BIGINT NOT NULL UNIQUE,
    telegram_username  TEXT,
    first_name         TEXT NOT NULL DEFAULT '',
    last_name          TEXT,
    photo_url          TEXT,
    platform_id        TEXT REFERENCES platforms(id),
    platform_username  TEXT,
    is_premium         BOOLEAN NOT NULL DEFAULT FALSE,
    premium_expiry     TIMESTAMPTZ,
    social_links       JSONB NOT NULL DEFAULT '{}'::jsonb,
    is_verified        BOOLEAN NOT NULL DEFAULT FALSE,
    stripe_customer_id TEXT UNIQUE,
    created_at         TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at         TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS stats (
    id                  UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id             UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    platform_id         TEXT NOT NULL REFERENCES platforms(id),
    wins                INTEGER NOT NULL DEFAULT 0 CHECK (wins >= 0),
    losses              INTEGER NOT NULL DEFAULT 0 CHECK (losses >= 0),
    games_played        INTEGER GENERATED ALWAYS AS (wins + losses) STORED,
    win_rate            NUMERIC(7, 6) GENERATED ALWAYS AS (
                            CASE WHEN wins + losses > 0
                                 THEN wins::numeric / (wins + losses)
                                 ELSE 0 END) STORED,
    verification_status TEXT NOT NULL DEFAULT 'pending'
                            CHECK (verification_status IN ('pending', 'verified', 'disputed')),
    verified_by         BIGINT,
    verified_at         TIMESTAMPTZ,
    notes               TEXT,
    created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    UNIQUE (user_id, platform_id)
);

CREATE TABLE IF NOT EXISTS stats_evidence (
    id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id      UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    platform_id  TEXT NOT NULL REFERENCES platforms(id),
    storage_path TEXT NOT NULL UNIQUE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS subscriptions (
    id                     UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    user_id                UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    stripe_subscription_id TEXT NOT NULL UNIQUE,
    stripe_customer_id     TEXT NOT NULL,
    price_id               TEXT NOT NULL,
    status                 TEXT NOT NULL,
    current_period_start   TIMESTAMPTZ NOT NULL,
    current_period_end     TIMESTAMPTZ NOT NULL,
    cancel_at_period_end   BOOLEAN NOT NULL DEFAULT FALSE,
    created_at             TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at             TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

-- a customer can hold several subscriptions, e.g. two checkouts completed close together
ALTER TABLE subscriptions DROP CONSTRAINT IF EXISTS subscriptions_user_id_key;
CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions (user_id);

CREATE TABLE IF NOT EXISTS webhook_events (
    id               UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    stripe_event_id  TEXT NOT NULL UNIQUE,
    event_type       TEXT NOT NULL,
    payload          JSONB,
    processed_at     TIMESTAMPTZ,
    processing_error TEXT,
    created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS bible_verses (
    id          SERIAL PRIMARY KEY,
    reference   TEXT NOT NULL UNIQUE,
    text        TEXT NOT NULL,
    translation TEXT NOT NULL DEFAULT 'KJV'
);

CREATE TABLE IF NOT EXISTS dead_letter_messages (
    id                UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    source            TEXT NOT NULL,
    subscription_name TEXT NOT NULL DEFAULT '',
    message_id        TEXT NOT NULL DEFAULT '',
    payload           TEXT NOT NULL,
    attributes        JSONB,
    status            TEXT NOT NULL DEFAULT 'unprocessed',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_stats_platform_status ON stats (platform_id, verification_status);
CREATE INDEX IF NOT EXISTS idx_users_premium_expiry ON users (premium_expiry) WHERE is_premium;
`

// Only verified stats are ranked. Ties fall through to user_id so the order is total.
const views = `
CREATE OR REPLACE VIEW platform_leaderboard AS
SELECT
    ROW_NUMBER() OVER (
        PARTITION BY s.platform_id
        ORDER BY s.win_rate DESC, s.wins DESC, s.games_played DESC, u.id
    ) AS rank,
    u.id AS user_id,
    u.telegram_id,
    COALESCE(u.telegram_username, '') AS username,
    u.first_name,
    COALESCE(u.photo_url, '') AS photo_url,
    s.platform_id,
    COALESCE(u.platform_username, '') AS platform_username,
    s.wins,
    s.losses,
    s.games_played,
    s.win_rate,
    u.is_verified,
    (u.is_premium AND (u.premium_expiry IS NULL OR u.premium_expiry > NOW())) AS has_premium
FROM stats s
JOIN users u ON u.id = s.user_id
WHERE s.verification_status = 'verified';

CREATE OR REPLACE VIEW global_leaderboard AS
WITH totals AS (
    SELECT s.user_id, SUM(s.wins)::int AS wins, SUM(s.losses)::int AS losses
    FROM stats s
    WHERE s.verification_status = 'verified'
    GROUP BY s.user_id
)
SELECT
    ROW_NUMBER() OVER (
        ORDER BY
            CASE WHEN t.wins + t.losses > 0 THEN t.wins::numeric / (t.wins + t.losses) ELSE 0 END DESC,
            t.wins DESC,
            t.wins + t.losses DESC,
            u.id
    ) AS rank,
    u.id AS user_id,
    u.telegram_id,
    COALESCE(u.telegram_username, '') AS username,
    u.first_name,
    COALESCE(u.photo_url, '') AS photo_url,
    t.wins,
    t.losses,
    t.wins + t.losses AS games_played,
    CASE WHEN t.wins + t.losses > 0 THEN t.wins::numeric / (t.wins + t.losses) ELSE 0 END AS win_rate,
    u.is_verified,
    (u.is_premium AND (u.premium_expiry IS NULL OR u.premium_expiry > NOW())) AS has_premium
FROM totals t
JOIN users u ON u.id = t.user_id;
`

const seed = `
INSERT INTO platforms (id, name, website_url, sort_order) VALUES
    ('dominoes_jogatina', 'Dominoes Jogatina', 'https://www.jogatina.com', 1),
    ('plato', 'Plato', 'https://playplato.com', 2),
    ('domino_battle', 'Domino Battle', NULL, 3),
    ('loco_dominoes', 'Loco Dominoes', NULL, 4),
    ('dominoes_gold', 'Dominoes Gold', NULL, 5),
    ('other', 'Other', NULL, 99)
ON CONFLICT (id) DO NOTHING;

INSERT INTO bible_verses (reference, text) VALUES
    ('John 3:16', 'For God so loved the world, that he gave his only begotten Son, that whosoever believeth in him should not perish, but have everlasting life.'),
    ('Philippians 4:13', 'I can do all things through Christ which strengtheneth me.'),
    ('Proverbs 3:5', 'Trust in the LORD with all thine heart; and lean not unto thine own understanding.'),
    ('Psalm 23:1', 'The LORD is my shepherd; I shall not want.'),
    ('Romans 8:28', 'And we know that all things work together for good to them that love God, to them who are the called according to his purpose.'),
    ('Joshua 1:9', 'Have not I commanded thee? Be strong and of a good courage; be not afraid, neither be thou dismayed: for the LORD thy God is with thee whithersoever thou goest.'),
    ('Isaiah 40:31', 'But they that wait upon the LORD shall renew their strength; they shall mount up with wings as eagles; they shall run, and not be weary; and they shall walk, and not faint.'),
    ('Matthew 5:9', 'Blessed are the peacemakers: for they shall be called the children of God.'),
    ('Psalm 118:24', 'This is the day which the LORD hath made; we will rejoice and be glad in it.'),
    ('1 Corinthians 9:24', 'Know ye not that they which run in a race run all, but one receiveth the prize? So run, that ye may obtain.'),
    ('Hebrews 12:1', 'Let us run with patience the race that is set before us.'),
    ('2 Timothy 4:7', 'I have fought a good fight, I have finished my course, I have kept the faith.')
ON CONFLICT (reference) DO NOTHING;
`
