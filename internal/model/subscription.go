package model

import "time"

// SubscriptionStatus mirrors a Stripe subscription status.
type SubscriptionStatus string

const (
	SubscriptionActive            SubscriptionStatus = "active"
	SubscriptionTrialing          SubscriptionStatus = "trialing"
	SubscriptionPastDue           SubscriptionStatus = "past_due"
	SubscriptionCanceled          SubscriptionStatus = "canceled"
	SubscriptionUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionPaused            SubscriptionStatus = "paused"
)

// GrantsPremium reports whether a subscription in this status unlocks premium.
// past_due keeps access while Stripe retries the payment.
func (s SubscriptionStatus) GrantsPremium() bool {
	switch s {
	case SubscriptionActive, SubscriptionTrialing, SubscriptionPastDue:
		return true
	}
	return false
}

// Subscription mirrors a Stripe subscription; only webhook handlers write it.
type Subscription struct {
	ID                   string             `db:"id" json:"id"`
	UserID               string             `db:"user_id" json:"user_id"`
	StripeSubscriptionID string             `db:"stripe_subscription_id" json:"stripe_subscription_id"`
	StripeCustomerID     string             `db:"stripe_customer_id" json:"stripe_customer_id"`
	PriceID              string             `db:"price_id" json:"price_id"`
	Status               SubscriptionStatus `db:"status" json:"status"`
	CurrentPeriodStart   time.Time          `db:"current_period_start" json:"current_period_start"`
	CurrentPeriodEnd     time.Time          `db:"current_period_end" json:"current_period_end"`
	CancelAtPeriodEnd    bool               `db:"cancel_at_period_end" json:"cancel_at_period_end"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// ActiveAt reports whether the subscription grants premium at now.
func (s *Subscription) ActiveAt(now time.Time) bool {
	if s == nil {
		return false
	}
	return s.Status.GrantsPremium() && s.CurrentPeriodEnd.After(now)
}

// CurrentSubscription picks the subscription that decides a user's premium state:
// a premium-granting one first, then the latest period end, then the last updated.
func CurrentSubscription(subs []*Subscription) *Subscription {
	var best *Subscription
	for _, s := range subs {
		if s == nil {
			continue
		}
		if best == nil || preferSubscription(s, best) {
			best = s
		}
	}
	return best
}

func preferSubscription(a, b *Subscription) bool {
	if ga, gb := a.Status.GrantsPremium(), b.Status.GrantsPremium(); ga != gb {
		return ga
	}
	if !a.CurrentPeriodEnd.Equal(b.CurrentPeriodEnd) {
		return a.CurrentPeriodEnd.After(b.CurrentPeriodEnd)
	}
	return !a.UpdatedAt.Before(b.UpdatedAt)
}

// Plan is a purchasable premium plan.
type Plan struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	PriceID  string `json:"price_id"`
	Interval string `json:"interval"`
}

const (
	PlanMonthly = "monthly"
	PlanAnnual  = "annual"
)

// PremiumFeatures lists what premium unlocks.
var PremiumFeatures = []string{"social_links", "random_verse", "premium_badge"}
