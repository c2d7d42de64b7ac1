package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"dominoboard/internal/config"
	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// CheckoutService is the checkout surface of StripeService.
type CheckoutService interface {
	Plans() []model.Plan
	CreateCheckoutSession(ctx context.Context, telegramID int64, plan string) (string, error)
}

var _ CheckoutService = (*StripeService)(nil)

// StripeService manages checkout and webhook processing.
type StripeService struct {
	cfg       *config.Config
	client    StripeClient
	userRepo  repository.UserRepository
	subRepo   repository.SubscriptionRepository
	eventRepo repository.WebhookEventRepository
	events    *EventEmitter
	logger    zerolog.Logger
	now       func() time.Time
}

// NewStripeService returns the service with a scoped logger.
func NewStripeService(
	cfg *config.Config,
	client StripeClient,
	userRepo repository.UserRepository,
	subRepo repository.SubscriptionRepository,
	eventRepo repository.WebhookEventRepository,
	events *EventEmitter,
	logger zerolog.Logger,
) *StripeService {
	return &StripeService{
		cfg:       cfg,
		client:    client,
		userRepo:  userRepo,
		subRepo:   subRepo,
		eventRepo: eventRepo,
		events:    events,
		logger:    logger.With().Str("service", "StripeService").Logger(),
		now:       time.Now,
	}
}

// Plans lists the purchasable plans.
func (s *StripeService) Plans() []model.Plan {
	return []model.Plan{
		{ID: model.PlanMonthly, Name: "Premium Monthly", PriceID: s.cfg.StripePriceMonthly, Interval: "month"},
		{ID: model.PlanAnnual, Name: "Premium Annual", PriceID: s.cfg.StripePriceAnnual, Interval: "year"},
	}
}

func (s *StripeService) priceFor(plan string) (string, error) {
	for _, p := range s.Plans() {
		if p.ID == plan {
			return p.PriceID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrInvalidPlan, plan)
}

// getOrCreateCustomer returns the user's Stripe customer, creating and storing one on first checkout.
func (s *StripeService) getOrCreateCustomer(ctx context.Context, u *model.User) (string, error) {
	if u.StripeCustomerID != nil && *u.StripeCustomerID != "" {
		return *u.StripeCustomerID, nil
	}
	cust, err := s.client.CreateCustomer(&stripe.CustomerParams{
		Name: stripe.String(u.DisplayName()),
		Metadata: map[string]string{
			"user_id":     u.ID,
			"telegram_id": strconv.FormatInt(u.TelegramID, 10),
		},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to create Stripe customer")
		return "", fmt.Errorf("%w: create stripe customer: %v", ErrUpstream, err)
	}
	if err := s.userRepo.UpdateStripeCustomerID(ctx, u.ID, cust.ID); err != nil {
		s.logger.Error().Err(err).Str("user_id", u.ID).Msg("Failed to store stripe customer id")
		return "", fmt.Errorf("store stripe customer id: %w", err)
	}
	u.StripeCustomerID = &cust.ID
	return cust.ID, nil
}

// CreateCheckoutSession creates a Stripe Checkout session and returns its URL.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, telegramID int64, plan string) (string, error) {
	priceID, err := s.priceFor(plan)
	if err != nil {
		return "", err
	}
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return "", fmt.Errorf("fetch user: %w", err)
	}
	if u == nil {
		return "", ErrUserNotFound
	}
	existing, err := s.subRepo.GetByUserID(ctx, u.ID)
	if err != nil {
		return "", err
	}
	if existing.ActiveAt(s.now()) {
		return "", ErrAlreadySubscribed
	}
	customerID, err := s.getOrCreateCustomer(ctx, u)
	if err != nil {
		return "", err
	}

	metadata := map[string]string{
		"user_id":     u.ID,
		"telegram_id": strconv.FormatInt(u.TelegramID, 10),
	}
	sess, err := s.client.CreateCheckoutSession(&stripe.CheckoutSessionParams{
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(u.ID),
		LineItems:         []*stripe.CheckoutSessionLineItemParams{{Price: stripe.String(priceID), Quantity: stripe.Int64(1)}},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(s.cfg.StripeReturnURL + "?status=success"),
		CancelURL:         stripe.String(s.cfg.StripeReturnURL + "?status=cancel"),
		Metadata:          metadata,
		SubscriptionData:  &stripe.CheckoutSessionSubscriptionDataParams{Metadata: metadata},
	})
	if err != nil {
		s.logger.Error().Err(err).Str("plan", plan).Msg("Failed to create Stripe checkout session")
		return "", fmt.Errorf("%w: create checkout session: %v", ErrUpstream, err)
	}
	s.logger.Info().Str("user_id", u.ID).Str("plan", plan).Str("session_id", sess.ID).Msg("Checkout session created")
	return sess.URL, nil
}

// VerifyEvent checks the Stripe-Signature header and decodes the event.
func (s *StripeService) VerifyEvent(payload []byte, signature string) (stripe.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.StripeWebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return event, nil
}

// HandleEvent processes event at most once. A replayed event id returns ErrDuplicateEvent
// without side effects. When processing fails the claim is released so Stripe's retry runs again.
func (s *StripeService) HandleEvent(ctx context.Context, event stripe.Event) error {
	var raw []byte
	if event.Data != nil {
		raw = event.Data.Raw
	}
	claimed, err := s.eventRepo.Claim(ctx, event.ID, string(event.Type), raw)
	if err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to claim webhook event")
		return err
	}
	if !claimed {
		s.logger.Info().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Duplicate webhook event skipped")
		return ErrDuplicateEvent
	}

	s.logger.Info().Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Stripe webhook received")
	if err := s.dispatch(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Str("event_type", string(event.Type)).Msg("Failed to process webhook event")
		if rerr := s.eventRepo.Release(ctx, event.ID, err); rerr != nil {
			s.logger.Error().Err(rerr).Str("event_id", event.ID).Msg("Failed to release webhook event claim")
		}
		return err
	}
	if err := s.eventRepo.MarkProcessed(ctx, event.ID); err != nil {
		s.logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to mark webhook event processed")
	}
	return nil
}

func (s *StripeService) dispatch(ctx context.Context, event stripe.Event) error {
	if event.Data == nil {
		return ErrInvalidPayload
	}
	switch event.Type {
	case "checkout.session.completed":
		var cs stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
			return fmt.Errorf("%w: checkout.session: %v", ErrInvalidPayload, err)
		}
		return s.handleCheckoutCompleted(ctx, &cs)
	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var ss stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &ss); err != nil {
			return fmt.Errorf("%w: subscription: %v", ErrInvalidPayload, err)
		}
		u, err := s.resolveUser(ctx, ss.Metadata, customerID(ss.Customer))
		if err != nil || u == nil {
			return err
		}
		return s.syncSubscription(ctx, u, &ss, "")
	case "invoice.payment_succeeded", "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return fmt.Errorf("%w: invoice: %v", ErrInvalidPayload, err)
		}
		return s.handleInvoice(ctx, &inv, event.Type == "invoice.payment_failed")
	default:
		s.logger.Warn().Str("event_type", string(event.Type)).Msg("Unhandled Stripe webhook event")
		return nil
	}
}

func (s *StripeService) handleCheckoutCompleted(ctx context.Context, cs *stripe.CheckoutSession) error {
	if cs.Subscription == nil || cs.Subscription.ID == "" {
		s.logger.Info().Str("session_id", cs.ID).Msg("Checkout session has no subscription, skipping")
		return nil
	}
	metadata := cs.Metadata
	if metadata["user_id"] == "" && cs.ClientReferenceID != "" {
		metadata = map[string]string{"user_id": cs.ClientReferenceID}
	}
	u, err := s.resolveUser(ctx, metadata, customerID(cs.Customer))
	if err != nil || u == nil {
		return err
	}
	if cid := customerID(cs.Customer); cid != "" && (u.StripeCustomerID == nil || *u.StripeCustomerID != cid) {
		if err := s.userRepo.UpdateStripeCustomerID(ctx, u.ID, cid); err != nil {
			return fmt.Errorf("store stripe customer id: %w", err)
		}
	}
	ss, err := s.client.GetSubscription(cs.Subscription.ID)
	if err != nil {
		return fmt.Errorf("%w: fetch subscription %s: %v", ErrUpstream, cs.Subscription.ID, err)
	}
	return s.syncSubscription(ctx, u, ss, "")
}

func (s *StripeService) handleInvoice(ctx context.Context, inv *stripe.Invoice, failed bool) error {
	var subID string
	if inv.Lines != nil {
		for _, line := range inv.Lines.Data {
			if line.Subscription != nil && line.Subscription.ID != "" {
				subID = line.Subscription.ID
				break
			}
		}
	}
	if subID == "" {
		s.logger.Info().Str("invoice_id", inv.ID).Msg("Invoice has no subscription, skipping subscription update")
		return nil
	}
	ss, err := s.client.GetSubscription(subID)
	if err != nil {
		return fmt.Errorf("%w: fetch subscription %s: %v", ErrUpstream, subID, err)
	}
	metadata := ss.Metadata
	if metadata["user_id"] == "" {
		metadata = inv.Metadata
	}
	u, err := s.resolveUser(ctx, metadata, customerID(inv.Customer))
	if err != nil || u == nil {
		return err
	}
	var override model.SubscriptionStatus
	if failed && ss.Status == stripe.SubscriptionStatusActive {
		override = model.SubscriptionPastDue
	}
	return s.syncSubscription(ctx, u, ss, override)
}

// resolveUser finds the user from webhook metadata, falling back to the Stripe customer id.
// An unknown user yields nil, nil so the event is acknowledged instead of retried forever.
func (s *StripeService) resolveUser(ctx context.Context, metadata map[string]string, customerID string) (*model.User, error) {
	if userID := metadata["user_id"]; userID != "" {
		u, err := s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("lookup user %s: %w", userID, err)
		}
		if u != nil {
			return u, nil
		}
	}
	if customerID != "" {
		u, err := s.userRepo.GetByStripeCustomerID(ctx, customerID)
		if err != nil {
			return nil, fmt.Errorf("lookup user by stripe customer %s: %w", customerID, err)
		}
		if u != nil {
			return u, nil
		}
	}
	s.logger.Warn().Str("user_id", metadata["user_id"]).Str("stripe_customer_id", customerID).Msg("Cannot resolve user for webhook event; acknowledging")
	return nil, nil
}

// syncSubscription stores Stripe's view of one subscription and mirrors the user's
// current subscription onto the premium flag. Another subscription that still
// grants premium keeps the user premium when this one ends.
func (s *StripeService) syncSubscription(ctx context.Context, u *model.User, ss *stripe.Subscription, override model.SubscriptionStatus) error {
	prevCurrent, err := s.subRepo.GetByUserID(ctx, u.ID)
	if err != nil {
		return err
	}
	sub := SubscriptionFromStripe(u.ID, ss)
	if override != "" {
		sub.Status = override
	}
	prev, err := s.subRepo.GetByStripeID(ctx, sub.StripeSubscriptionID)
	if err != nil {
		return err
	}
	if err := s.subRepo.Upsert(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	current, err := s.subRepo.GetByUserID(ctx, u.ID)
	if err != nil {
		return err
	}

	now := s.now()
	active := current.ActiveAt(now)
	if active {
		end := current.CurrentPeriodEnd
		err = s.userRepo.SetPremium(ctx, u.ID, true, &end)
	} else {
		err = s.userRepo.SetPremium(ctx, u.ID, false, nil)
	}
	if err != nil {
		return fmt.Errorf("mirror premium: %w", err)
	}
	log := s.logger.Info().Str("user_id", u.ID).Str("subscription_id", sub.StripeSubscriptionID).Str("status", string(sub.Status)).Bool("premium", active)
	if active && current.StripeSubscriptionID != sub.StripeSubscriptionID {
		log = log.Str("premium_subscription_id", current.StripeSubscriptionID)
	}
	log.Msg("Subscription synced")

	switch {
	case active && !prevCurrent.ActiveAt(now):
		s.events.Emit(ctx, model.NewEvent(model.EventPremiumActivated, u.TelegramID, map[string]string{
			"source": "subscription",
			"expiry": sub.CurrentPeriodEnd.UTC().Format(time.RFC3339),
		}))
	case sub.Status == model.SubscriptionPastDue && (prev == nil || prev.Status != model.SubscriptionPastDue):
		s.events.Emit(ctx, model.NewEvent(model.EventSubscriptionPastDue, u.TelegramID, nil))
	case !active && sub.Status == model.SubscriptionCanceled && (prev == nil || prev.Status != model.SubscriptionCanceled):
		s.events.Emit(ctx, model.NewEvent(model.EventSubscriptionCanceled, u.TelegramID, nil))
	}
	return nil
}

// SubscriptionFromStripe maps a Stripe subscription onto the stored row. The period comes from the first item.
func SubscriptionFromStripe(userID string, ss *stripe.Subscription) *model.Subscription {
	sub := &model.Subscription{
		UserID:               userID,
		StripeSubscriptionID: ss.ID,
		StripeCustomerID:     customerID(ss.Customer),
		Status:               model.SubscriptionStatus(ss.Status),
		CancelAtPeriodEnd:    ss.CancelAtPeriodEnd,
	}
	if ss.Items != nil && len(ss.Items.Data) > 0 {
		item := ss.Items.Data[0]
		sub.CurrentPeriodStart = time.Unix(item.CurrentPeriodStart, 0).UTC()
		sub.CurrentPeriodEnd = time.Unix(item.CurrentPeriodEnd, 0).UTC()
		if item.Price != nil {
			sub.PriceID = item.Price.ID
		}
	}
	return sub
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// IsDuplicate reports whether err marks an already processed webhook event.
func IsDuplicate(err error) bool {
	return errors.Is(err, ErrDuplicateEvent)
}
