package service

import "errors"

var (
	ErrUserNotFound              = errors.New("user not found")
	ErrStatsNotFound             = errors.New("stats not found")
	ErrPlatformNotFound          = errors.New("platform not found")
	ErrVerseNotFound             = errors.New("no verses available")
	ErrForbidden                 = errors.New("admin access required")
	ErrPremiumRequired           = errors.New("premium subscription required")
	ErrInvalidPlan               = errors.New("invalid plan")
	ErrNoSubscription            = errors.New("no subscription found")
	ErrNoStripeCustomer          = errors.New("no stripe customer for user")
	ErrAlreadySubscribed         = errors.New("user already has an active subscription")
	ErrInvalidVerificationStatus = errors.New("invalid verification status")
	ErrDuplicateEvent            = errors.New("webhook event already processed")
	ErrInvalidPayload            = errors.New("invalid webhook payload")
	ErrInvalidInput              = errors.New("invalid input")
	// ErrUpstream wraps failures of Stripe or object storage calls.
	ErrUpstream = errors.New("upstream service failed")
)
