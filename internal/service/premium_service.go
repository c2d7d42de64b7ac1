package service

import (
	"context"
	"fmt"
	"time"

	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/rs/zerolog"
)

const maxGrantDays = 3650

// PremiumStatus is a user's premium state as seen at one instant.
type PremiumStatus struct {
	IsPremium     bool
	PremiumExpiry *time.Time
	// Source is "subscription", "grant" or empty when not premium.
	Source       string
	Subscription *model.Subscription
	Features     []string
}

type PremiumService interface {
	// IsActive reports whether u has premium now. An expired flag never counts.
	IsActive(ctx context.Context, u *model.User) (bool, error)
	Status(ctx context.Context, telegramID int64) (*PremiumStatus, error)
	Features() []string
	Grant(ctx context.Context, actor model.Actor, telegramID int64, days int) (*model.User, error)
	Revoke(ctx context.Context, actor model.Actor, telegramID int64) (*model.User, error)
	// SweepExpired clears the premium flag of users whose expiry passed and reports how many were cleared.
	SweepExpired(ctx context.Context) (int, error)
}

type premiumService struct {
	userRepo repository.UserRepository
	subRepo  repository.SubscriptionRepository
	events   *EventEmitter
	logger   zerolog.Logger
	now      func() time.Time
}

func NewPremiumService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, events *EventEmitter, logger zerolog.Logger) PremiumService {
	return &premiumService{
		userRepo: userRepo,
		subRepo:  subRepo,
		events:   events,
		logger:   logger.With().Str("service", "PremiumService").Logger(),
		now:      time.Now,
	}
}

func (s *premiumService) IsActive(ctx context.Context, u *model.User) (bool, error) {
	if u == nil {
		return false, nil
	}
	now := s.now()
	if u.HasActivePremium(now) {
		return true, nil
	}
	sub, err := s.subRepo.GetByUserID(ctx, u.ID)
	if err != nil {
		return false, err
	}
	return sub.ActiveAt(now), nil
}

func (s *premiumService) Status(ctx context.Context, telegramID int64) (*PremiumStatus, error) {
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	sub, err := s.subRepo.GetByUserID(ctx, u.ID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	status := &PremiumStatus{Subscription: sub, Features: []string{}}
	switch {
	case sub.ActiveAt(now):
		end := sub.CurrentPeriodEnd
		status.IsPremium, status.Source, status.PremiumExpiry = true, "subscription", &end
	case u.HasActivePremium(now):
		status.IsPremium, status.Source, status.PremiumExpiry = true, "grant", u.PremiumExpiry
	}
	if status.IsPremium {
		status.Features = s.Features()
	}
	return status, nil
}

func (s *premiumService) Features() []string {
	out := make([]string, len(model.PremiumFeatures))
	copy(out, model.PremiumFeatures)
	return out
}

// Grant extends premium by days, counting from the current expiry when it is still in the future.
func (s *premiumService) Grant(ctx context.Context, actor model.Actor, telegramID int64, days int) (*model.User, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if days < 1 || days > maxGrantDays {
		return nil, fmt.Errorf("%w: days must be between 1 and %d", ErrInvalidInput, maxGrantDays)
	}
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	now := s.now()
	start := now
	if u.HasActivePremium(now) && u.PremiumExpiry != nil {
		start = *u.PremiumExpiry
	}
	expiry := start.Add(time.Duration(days) * 24 * time.Hour)
	if err := s.userRepo.SetPremium(ctx, u.ID, true, &expiry); err != nil {
		return nil, err
	}
	u.IsPremium, u.PremiumExpiry = true, &expiry

	s.logger.Info().Int64("telegram_id", telegramID).Int64("granted_by", actor.TelegramID).Time("expiry", expiry).Msg("Premium granted")
	s.events.Emit(ctx, model.NewEvent(model.EventPremiumActivated, telegramID, map[string]string{
		"source": "grant",
		"expiry": expiry.UTC().Format(time.RFC3339),
	}))
	return u, nil
}

func (s *premiumService) Revoke(ctx context.Context, actor model.Actor, telegramID int64) (*model.User, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	if err := s.userRepo.SetPremium(ctx, u.ID, false, nil); err != nil {
		return nil, err
	}
	u.IsPremium, u.PremiumExpiry = false, nil
	s.logger.Info().Int64("telegram_id", telegramID).Int64("revoked_by", actor.TelegramID).Msg("Premium revoked")
	return u, nil
}

func (s *premiumService) SweepExpired(ctx context.Context) (int, error) {
	cleared, err := s.userRepo.ClearExpiredPremium(ctx, s.now())
	if err != nil {
		return 0, err
	}
	for _, u := range cleared {
		s.events.Emit(ctx, model.NewEvent(model.EventPremiumExpired, u.TelegramID, nil))
	}
	if len(cleared) > 0 {
		s.logger.Info().Int("cleared", len(cleared)).Msg("Expired premium flags cleared")
	}
	return len(cleared), nil
}
