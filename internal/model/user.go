package model

import (
	"strings"
	"time"
)

// User is a Telegram identity registered with the leaderboard.
type User struct {
	ID               string            `db:"id" json:"id"`
	TelegramID       int64             `db:"telegram_id" json:"telegram_id"`
	TelegramUsername string            `db:"telegram_username" json:"telegram_username"`
	FirstName        string            `db:"first_name" json:"first_name"`
	LastName         string            `db:"last_name" json:"last_name"`
	PhotoURL         string            `db:"photo_url" json:"photo_url"`
	PlatformID       *string           `db:"platform_id" json:"platform_id,omitempty"`
	PlatformUsername *string           `db:"platform_username" json:"platform_username,omitempty"`
	IsPremium        bool              `db:"is_premium" json:"is_premium"`
	PremiumExpiry    *time.Time        `db:"premium_expiry" json:"premium_expiry,omitempty"`
	SocialLinks      map[string]string `db:"social_links" json:"social_links"`
	IsVerified       bool              `db:"is_verified" json:"is_verified"`
	StripeCustomerID *string           `db:"stripe_customer_id" json:"stripe_customer_id,omitempty"`
	CreatedAt        time.Time         `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time         `db:"updated_at" json:"updated_at"`
}

// HasActivePremium reports whether the premium flag is set and not yet expired at now.
// An expired flag stays in the row until the sweep clears it, so readers must use this.
func (u *User) HasActivePremium(now time.Time) bool {
	if u == nil || !u.IsPremium {
		return false
	}
	return u.PremiumExpiry == nil || u.PremiumExpiry.After(now)
}

func (u *User) DisplayName() string {
	if u.TelegramUsername != "" {
		return "@" + u.TelegramUsername
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// TelegramProfile carries the identity fields asserted by Telegram init data.
type TelegramProfile struct {
	TelegramID int64
	Username   string
	FirstName  string
	LastName   string
	PhotoURL   string
}

// ProfileUpdate is a self-service change to a user's profile. Nil fields are left as they are.
type ProfileUpdate struct {
	PlatformID       *string
	PlatformUsername *string
	SocialLinks      map[string]string
}

// SocialNetworks lists the keys accepted in User.SocialLinks.
var SocialNetworks = []string{"telegram", "instagram", "facebook", "tiktok", "youtube", "x"}

// Actor is the authenticated caller of an operation.
type Actor struct {
	TelegramID int64
	IsAdmin    bool
	// IsService is set for Supabase service-role callers, which have no Telegram identity.
	IsService bool
}

// VerifierID is the Telegram id recorded as verified_by, or nil for service callers.
func (a Actor) VerifierID() *int64 {
	if a.IsService || a.TelegramID == 0 {
		return nil
	}
	id := a.TelegramID
	return &id
}
