package dto

import (
	"time"

	"dominoboard/internal/model"
)

type PremiumGrantDTO struct {
	TelegramID int64 `json:"telegram_id" validate:"required,gt=0"`
	Days       int   `json:"days" validate:"required,min=1,max=3650"`
}

type PremiumRevokeDTO struct {
	TelegramID int64 `json:"telegram_id" validate:"required,gt=0"`
}

type PremiumStatusDTO struct {
	IsPremium     bool                `json:"is_premium"`
	PremiumExpiry *time.Time          `json:"premium_expiry,omitempty"`
	Source        string              `json:"source,omitempty"`
	Subscription  *model.Subscription `json:"subscription,omitempty"`
	Features      []string            `json:"features"`
}
