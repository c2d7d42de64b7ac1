package service

import (
	"context"
	"fmt"
	"time"

	"dominoboard/internal/cache"
	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/rs/zerolog"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 100
)

// Board is one page of a ranked leaderboard.
type Board struct {
	Entries []model.LeaderboardEntry `json:"entries"`
	Total   int                      `json:"total"`
	Offset  int                      `json:"offset"`
	Limit   int                      `json:"limit"`
}

type LeaderboardService interface {
	Global(ctx context.Context, offset, limit int) (*Board, error)
	Platform(ctx context.Context, platformID string, offset, limit int) (*Board, error)
	// UserRank finds the user's position on the global board and on each platform board they appear on.
	UserRank(ctx context.Context, telegramID int64) ([]model.UserRank, error)
	Invalidate(ctx context.Context, platformID string)
}

type leaderboardService struct {
	repo         repository.LeaderboardRepository
	platformRepo repository.PlatformRepository
	cache        cache.Cache
	ttl          time.Duration
	logger       zerolog.Logger
}

func NewLeaderboardService(repo repository.LeaderboardRepository, platformRepo repository.PlatformRepository, c cache.Cache, ttl time.Duration, logger zerolog.Logger) LeaderboardService {
	return &leaderboardService{
		repo:         repo,
		platformRepo: platformRepo,
		cache:        c,
		ttl:          ttl,
		logger:       logger.With().Str("service", "LeaderboardService").Logger(),
	}
}

func checkPage(offset, limit int) (int, error) {
	if offset < 0 {
		return 0, fmt.Errorf("%w: offset must be >= 0", ErrInvalidInput)
	}
	if limit == 0 {
		return DefaultPageLimit, nil
	}
	if limit < 1 || limit > MaxPageLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", ErrInvalidInput, MaxPageLimit)
	}
	return limit, nil
}

func (s *leaderboardService) Global(ctx context.Context, offset, limit int) (*Board, error) {
	limit, err := checkPage(offset, limit)
	if err != nil {
		return nil, err
	}
	entries, err := s.ranked(ctx, cache.GlobalLeaderboardKey, s.repo.Global)
	if err != nil {
		return nil, err
	}
	return &Board{Entries: s.withPremium(ctx, model.Page(entries, offset, limit)), Total: len(entries), Offset: offset, Limit: limit}, nil
}

func (s *leaderboardService) Platform(ctx context.Context, platformID string, offset, limit int) (*Board, error) {
	limit, err := checkPage(offset, limit)
	if err != nil {
		return nil, err
	}
	p, err := s.platformRepo.Get(ctx, platformID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPlatformNotFound
	}
	entries, err := s.ranked(ctx, cache.PlatformLeaderboardKey(platformID), func(ctx context.Context) ([]model.LeaderboardEntry, error) {
		return s.repo.Platform(ctx, platformID)
	})
	if err != nil {
		return nil, err
	}
	return &Board{Entries: s.withPremium(ctx, model.Page(entries, offset, limit)), Total: len(entries), Offset: offset, Limit: limit}, nil
}

func (s *leaderboardService) UserRank(ctx context.Context, telegramID int64) ([]model.UserRank, error) {
	global, err := s.ranked(ctx, cache.GlobalLeaderboardKey, s.repo.Global)
	if err != nil {
		return nil, err
	}
	ranks := []model.UserRank{findRank("global", global, telegramID)}

	platforms, err := s.platformRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range platforms {
		entries, err := s.ranked(ctx, cache.PlatformLeaderboardKey(p.ID), func(ctx context.Context) ([]model.LeaderboardEntry, error) {
			return s.repo.Platform(ctx, p.ID)
		})
		if err != nil {
			return nil, err
		}
		r := findRank(p.ID, entries, telegramID)
		if r.Entry != nil {
			ranks = append(ranks, r)
		}
	}
	for _, r := range ranks {
		if r.Entry == nil {
			continue
		}
		premium := s.withPremium(ctx, []model.LeaderboardEntry{*r.Entry})[0].HasPremium
		for _, other := range ranks {
			if other.Entry != nil {
				other.Entry.HasPremium = premium
			}
		}
		break
	}
	return ranks, nil
}

func findRank(board string, entries []model.LeaderboardEntry, telegramID int64) model.UserRank {
	r := model.UserRank{Board: board, TotalRanks: len(entries)}
	for i := range entries {
		if entries[i].TelegramID == telegramID {
			e := entries[i]
			r.Entry = &e
			break
		}
	}
	return r
}

func (s *leaderboardService) Invalidate(ctx context.Context, platformID string) {
	keys := []string{cache.GlobalLeaderboardKey}
	if platformID != "" {
		keys = append(keys, cache.PlatformLeaderboardKey(platformID))
	}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("Failed to invalidate leaderboard cache")
	}
}

// ranked returns the full ranked board at key, loading and caching it on a miss.
// Cache failures fall through to the database.
func (s *leaderboardService) ranked(ctx context.Context, key string, load func(context.Context) ([]model.LeaderboardEntry, error)) ([]model.LeaderboardEntry, error) {
	var entries []model.LeaderboardEntry
	hit, err := s.cache.Get(ctx, key, &entries)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Leaderboard cache read failed")
	}
	if hit {
		return entries, nil
	}

	entries, err = load(ctx)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to load leaderboard")
		return nil, err
	}
	model.RankEntries(entries)
	// Premium is filled per read by withPremium; the cached board never carries it.
	for i := range entries {
		entries[i].HasPremium = false
	}
	if err := s.cache.Set(ctx, key, entries, s.ttl); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Leaderboard cache write failed")
	}
	return entries, nil
}

// withPremium returns a copy of page with HasPremium taken from current user state.
// On lookup failure every entry is reported as not premium.
func (s *leaderboardService) withPremium(ctx context.Context, page []model.LeaderboardEntry) []model.LeaderboardEntry {
	out := make([]model.LeaderboardEntry, len(page))
	copy(out, page)
	if len(out) == 0 {
		return out
	}
	ids := make([]string, len(out))
	for i := range out {
		ids[i] = out[i].UserID
	}
	premium, err := s.repo.PremiumUsers(ctx, ids)
	if err != nil {
		s.logger.Warn().Err(err).Int("entries", len(ids)).Msg("Failed to load premium flags for leaderboard")
	}
	for i := range out {
		out[i].HasPremium = premium[out[i].UserID]
	}
	return out
}
