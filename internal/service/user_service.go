package service

import (
	"context"
	"fmt"

	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/rs/zerolog"
)

type UserService interface {
	// Authenticate creates the user on first Telegram auth and refreshes the identity fields afterwards.
	Authenticate(ctx context.Context, p model.TelegramProfile) (*model.User, error)
	Get(ctx context.Context, telegramID int64) (*model.User, error)
	// GetPublic returns another player's profile. Social links are dropped unless the player has premium.
	GetPublic(ctx context.Context, telegramID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, telegramID int64, upd model.ProfileUpdate) (*model.User, error)
	SetVerifiedBadge(ctx context.Context, actor model.Actor, telegramID int64, verified bool) (*model.User, error)
}

type userService struct {
	userRepo     repository.UserRepository
	platformRepo repository.PlatformRepository
	premium      PremiumService
	events       *EventEmitter
	logger       zerolog.Logger
}

func NewUserService(userRepo repository.UserRepository, platformRepo repository.PlatformRepository, premium PremiumService, events *EventEmitter, logger zerolog.Logger) UserService {
	return &userService{
		userRepo:     userRepo,
		platformRepo: platformRepo,
		premium:      premium,
		events:       events,
		logger:       logger.With().Str("service", "UserService").Logger(),
	}
}

func (s *userService) Authenticate(ctx context.Context, p model.TelegramProfile) (*model.User, error) {
	if p.TelegramID == 0 {
		return nil, fmt.Errorf("%w: missing telegram id", ErrInvalidInput)
	}
	u, err := s.userRepo.UpsertFromTelegram(ctx, p)
	if err != nil {
		s.logger.Error().Err(err).Int64("telegram_id", p.TelegramID).Msg("Failed to upsert user on auth")
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *userService) GetPublic(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	active, err := s.premium.IsActive(ctx, u)
	if err != nil {
		return nil, err
	}
	if !active {
		u.SocialLinks = map[string]string{}
	}
	u.StripeCustomerID = nil
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, telegramID int64, upd model.ProfileUpdate) (*model.User, error) {
	u, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if upd.PlatformID != nil && *upd.PlatformID != "" {
		p, err := s.platformRepo.Get(ctx, *upd.PlatformID)
		if err != nil {
			return nil, err
		}
		if p == nil || !p.IsActive {
			return nil, ErrPlatformNotFound
		}
	}
	if len(upd.SocialLinks) > 0 {
		active, err := s.premium.IsActive(ctx, u)
		if err != nil {
			return nil, err
		}
		if !active {
			return nil, ErrPremiumRequired
		}
	}

	updated, err := s.userRepo.UpdateProfile(ctx, telegramID, upd)
	if err != nil {
		s.logger.Error().Err(err).Int64("telegram_id", telegramID).Msg("Failed to update profile")
		return nil, err
	}
	if updated == nil {
		return nil, ErrUserNotFound
	}
	return updated, nil
}

func (s *userService) SetVerifiedBadge(ctx context.Context, actor model.Actor, telegramID int64, verified bool) (*model.User, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	u, err := s.userRepo.SetVerified(ctx, telegramID, verified)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	s.logger.Info().Int64("telegram_id", telegramID).Bool("verified", verified).Int64("by", actor.TelegramID).Msg("Verified badge updated")
	if verified {
		s.events.Emit(ctx, model.NewEvent(model.EventVerifiedBadgeGranted, telegramID, nil))
	}
	return u, nil
}
