package service

import (
	"context"
	"time"

	"dominoboard/internal/cache"
	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/rs/zerolog"
)

type VerseService interface {
	// Daily returns the verse of the UTC day containing now. Every caller sees the same verse all day.
	Daily(ctx context.Context, now time.Time) (*model.Verse, error)
	// Random returns any verse. Premium only.
	Random(ctx context.Context, telegramID int64) (*model.Verse, error)
}

type verseService struct {
	repo     repository.VerseRepository
	userRepo repository.UserRepository
	premium  PremiumService
	cache    cache.Cache
	logger   zerolog.Logger
}

func NewVerseService(repo repository.VerseRepository, userRepo repository.UserRepository, premium PremiumService, c cache.Cache, logger zerolog.Logger) VerseService {
	return &verseService{
		repo:     repo,
		userRepo: userRepo,
		premium:  premium,
		cache:    c,
		logger:   logger.With().Str("service", "VerseService").Logger(),
	}
}

// DailyVerseIndex maps a UTC day onto [0, count).
func DailyVerseIndex(day time.Time, count int) int {
	if count <= 0 {
		return 0
	}
	days := day.UTC().Unix() / 86400
	idx := int(days % int64(count))
	if idx < 0 {
		idx += count
	}
	return idx
}

func (s *verseService) Daily(ctx context.Context, now time.Time) (*model.Verse, error) {
	key := cache.DailyVerseKey(now)
	var v model.Verse
	hit, err := s.cache.Get(ctx, key, &v)
	if err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Verse cache read failed")
	}
	if hit {
		return &v, nil
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, ErrVerseNotFound
	}
	verse, err := s.repo.GetByOffset(ctx, DailyVerseIndex(now, count))
	if err != nil {
		return nil, err
	}
	if verse == nil {
		return nil, ErrVerseNotFound
	}

	y, m, d := now.UTC().Date()
	midnight := time.Date(y, m, d+1, 0, 0, 0, 0, time.UTC)
	if err := s.cache.Set(ctx, key, verse, midnight.Sub(now)); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("Verse cache write failed")
	}
	return verse, nil
}

func (s *verseService) Random(ctx context.Context, telegramID int64) (*model.Verse, error) {
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	active, err := s.premium.IsActive(ctx, u)
	if err != nil {
		return nil, err
	}
	if !active {
		return nil, ErrPremiumRequired
	}
	v, err := s.repo.Random(ctx)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ErrVerseNotFound
	}
	return v, nil
}
