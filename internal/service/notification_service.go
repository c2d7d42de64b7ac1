package service

import (
	"context"
	"fmt"

	"dominoboard/internal/model"

	"github.com/rs/zerolog"
)

// Sender delivers a text message to a Telegram chat.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

type NotificationService interface {
	// Dispatch sends the message for ev. Event types without a message are skipped.
	Dispatch(ctx context.Context, ev model.Event) error
}

type notificationService struct {
	sender Sender
	logger zerolog.Logger
}

func NewNotificationService(sender Sender, logger zerolog.Logger) NotificationService {
	return &notificationService{
		sender: sender,
		logger: logger.With().Str("service", "NotificationService").Logger(),
	}
}

// RenderEvent returns the Telegram text for ev and false when the type has no message.
func RenderEvent(ev model.Event) (string, bool) {
	switch ev.Type {
	case model.EventStatsVerified:
		return fmt.Sprintf("Your %s stats (%s W / %s L) were verified and now count on the leaderboard.",
			ev.Data["platform_id"], ev.Data["wins"], ev.Data["losses"]), true
	case model.EventStatsDisputed:
		return fmt.Sprintf("Your %s stats were disputed by an admin. Upload new evidence to have them reviewed again.",
			ev.Data["platform_id"]), true
	case model.EventPremiumActivated:
		return "Premium is active. Social links, random verses and the premium badge are unlocked.", true
	case model.EventPremiumExpired:
		return "Your premium access has ended. Renew any time from the app.", true
	case model.EventSubscriptionCanceled:
		return "Your subscription was canceled.", true
	case model.EventSubscriptionPastDue:
		return "We couldn't charge your card. Update your payment method to keep premium.", true
	case model.EventVerifiedBadgeGranted:
		return "You've been awarded the verified player badge.", true
	}
	return "", false
}

func (s *notificationService) Dispatch(ctx context.Context, ev model.Event) error {
	text, ok := RenderEvent(ev)
	if !ok {
		s.logger.Debug().Str("event_type", ev.Type).Msg("No notification for event type")
		return nil
	}
	if ev.TelegramID == 0 {
		s.logger.Warn().Str("event_id", ev.ID).Str("event_type", ev.Type).Msg("Event has no recipient")
		return nil
	}
	if s.sender == nil {
		s.logger.Debug().Str("event_type", ev.Type).Msg("Telegram push disabled; dropping notification")
		return nil
	}
	if err := s.sender.Send(ctx, ev.TelegramID, text); err != nil {
		return fmt.Errorf("notify %d of %s: %w", ev.TelegramID, ev.Type, err)
	}
	s.logger.Info().Str("event_id", ev.ID).Str("event_type", ev.Type).Int64("telegram_id", ev.TelegramID).Msg("Notification sent")
	return nil
}
