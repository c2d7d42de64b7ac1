package service

import (
	"context"
	"fmt"

	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
)

// SubscriptionService defines business logic methods for subscriptions.
type SubscriptionService interface {
	Get(ctx context.Context, telegramID int64) (*model.Subscription, error)
	// Cancel schedules cancellation at the end of the current period.
	// The stored row changes when Stripe's customer.subscription.updated webhook arrives.
	Cancel(ctx context.Context, telegramID int64) (*model.Subscription, error)
	Resume(ctx context.Context, telegramID int64) (*model.Subscription, error)
	PortalURL(ctx context.Context, telegramID int64) (string, error)
}

type subscriptionService struct {
	userRepo  repository.UserRepository
	subRepo   repository.SubscriptionRepository
	client    StripeClient
	returnURL string
	logger    zerolog.Logger
}

// NewSubscriptionService creates a new SubscriptionService with a scoped logger.
func NewSubscriptionService(userRepo repository.UserRepository, subRepo repository.SubscriptionRepository, client StripeClient, returnURL string, logger zerolog.Logger) SubscriptionService {
	return &subscriptionService{
		userRepo:  userRepo,
		subRepo:   subRepo,
		client:    client,
		returnURL: returnURL,
		logger:    logger.With().Str("service", "SubscriptionService").Logger(),
	}
}

func (s *subscriptionService) user(ctx context.Context, telegramID int64) (*model.User, error) {
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (s *subscriptionService) Get(ctx context.Context, telegramID int64) (*model.Subscription, error) {
	u, err := s.user(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subRepo.GetByUserID(ctx, u.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to fetch subscription")
		return nil, err
	}
	if sub == nil {
		return nil, ErrNoSubscription
	}
	return sub, nil
}

func (s *subscriptionService) Cancel(ctx context.Context, telegramID int64) (*model.Subscription, error) {
	return s.setCancelAtPeriodEnd(ctx, telegramID, true)
}

func (s *subscriptionService) Resume(ctx context.Context, telegramID int64) (*model.Subscription, error) {
	return s.setCancelAtPeriodEnd(ctx, telegramID, false)
}

func (s *subscriptionService) setCancelAtPeriodEnd(ctx context.Context, telegramID int64, cancel bool) (*model.Subscription, error) {
	sub, err := s.Get(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if !sub.Status.GrantsPremium() {
		return nil, ErrNoSubscription
	}
	updated, err := s.client.UpdateSubscription(sub.StripeSubscriptionID, &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("subscription_id", sub.StripeSubscriptionID).Bool("cancel", cancel).Msg("Failed to update Stripe subscription")
		return nil, fmt.Errorf("%w: update subscription: %v", ErrUpstream, err)
	}
	sub.CancelAtPeriodEnd = updated.CancelAtPeriodEnd
	s.logger.Info().Str("subscription_id", sub.StripeSubscriptionID).Bool("cancel_at_period_end", sub.CancelAtPeriodEnd).Msg("Subscription cancellation updated")
	return sub, nil
}

// PortalURL creates a Stripe Customer Portal session for the user.
func (s *subscriptionService) PortalURL(ctx context.Context, telegramID int64) (string, error) {
	u, err := s.user(ctx, telegramID)
	if err != nil {
		return "", err
	}
	if u.StripeCustomerID == nil || *u.StripeCustomerID == "" {
		return "", ErrNoStripeCustomer
	}
	sess, err := s.client.CreatePortalSession(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(*u.StripeCustomerID),
		ReturnURL: stripe.String(s.returnURL),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to create Stripe billing portal session")
		return "", fmt.Errorf("%w: create billing portal session: %v", ErrUpstream, err)
	}
	return sess.URL, nil
}
