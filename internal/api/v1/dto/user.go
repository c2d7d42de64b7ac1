package dto

import (
	"time"

	"dominoboard/internal/model"
)

// ProfileUpdateDTO is used for incoming profile update requests
type ProfileUpdateDTO struct {
	PlatformID       *string           `json:"platform_id,omitempty" validate:"omitempty,min=1,max=64"`
	PlatformUsername *string           `json:"platform_username,omitempty" validate:"omitempty,min=1,max=64"`
	SocialLinks      map[string]string `json:"social_links,omitempty" validate:"omitempty,max=6,dive,keys,oneof=telegram instagram facebook tiktok youtube x,endkeys,url,max=512"`
}

// VerifiedBadgeDTO sets or clears a player's verified badge
type VerifiedBadgeDTO struct {
	TelegramID int64 `json:"telegram_id" validate:"required,gt=0"`
	Verified   *bool `json:"verified" validate:"required"`
}

// UserResponseDTO is returned for the caller's own profile
type UserResponseDTO struct {
	ID               string            `json:"id"`
	TelegramID       int64             `json:"telegram_id"`
	TelegramUsername string            `json:"telegram_username,omitempty"`
	FirstName        string            `json:"first_name"`
	LastName         string            `json:"last_name,omitempty"`
	PhotoURL         string            `json:"photo_url,omitempty"`
	PlatformID       *string           `json:"platform_id,omitempty"`
	PlatformUsername *string           `json:"platform_username,omitempty"`
	IsPremium        bool              `json:"is_premium"`
	PremiumExpiry    *time.Time        `json:"premium_expiry,omitempty"`
	SocialLinks      map[string]string `json:"social_links"`
	IsVerified       bool              `json:"is_verified"`
	IsAdmin          bool              `json:"is_admin,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// PublicUserDTO is another player's profile
type PublicUserDTO struct {
	TelegramID       int64             `json:"telegram_id"`
	TelegramUsername string            `json:"telegram_username,omitempty"`
	FirstName        string            `json:"first_name"`
	PhotoURL         string            `json:"photo_url,omitempty"`
	PlatformID       *string           `json:"platform_id,omitempty"`
	PlatformUsername *string           `json:"platform_username,omitempty"`
	SocialLinks      map[string]string `json:"social_links"`
	IsVerified       bool              `json:"is_verified"`
	HasPremium       bool              `json:"has_premium"`
}

// NewUserResponse maps u, reporting premium as it stands at now rather than the stored flag.
func NewUserResponse(u *model.User, premium, isAdmin bool) UserResponseDTO {
	links := u.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	resp := UserResponseDTO{
		ID:               u.ID,
		TelegramID:       u.TelegramID,
		TelegramUsername: u.TelegramUsername,
		FirstName:        u.FirstName,
		LastName:         u.LastName,
		PhotoURL:         u.PhotoURL,
		PlatformID:       u.PlatformID,
		PlatformUsername: u.PlatformUsername,
		IsPremium:        premium,
		SocialLinks:      links,
		IsVerified:       u.IsVerified,
		IsAdmin:          isAdmin,
		CreatedAt:        u.CreatedAt,
	}
	if premium {
		resp.PremiumExpiry = u.PremiumExpiry
	}
	return resp
}

func NewPublicUser(u *model.User, premium bool) PublicUserDTO {
	links := u.SocialLinks
	if links == nil {
		links = map[string]string{}
	}
	return PublicUserDTO{
		TelegramID:       u.TelegramID,
		TelegramUsername: u.TelegramUsername,
		FirstName:        u.FirstName,
		PhotoURL:         u.PhotoURL,
		PlatformID:       u.PlatformID,
		PlatformUsername: u.PlatformUsername,
		SocialLinks:      links,
		IsVerified:       u.IsVerified,
		HasPremium:       premium,
	}
}
