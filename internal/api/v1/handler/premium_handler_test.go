package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"dominoboard/internal/middleware"
	"dominoboard/internal/model"
	"dominoboard/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type grantingPremium struct {
	service.PremiumService
	grantedDays int
}

func (p *grantingPremium) Grant(_ context.Context, actor model.Actor, telegramID int64, days int) (*model.User, error) {
	if !actor.IsAdmin {
		return nil, service.ErrForbidden
	}
	p.grantedDays = days
	expiry := time.Now().Add(time.Duration(days) * 24 * time.Hour)
	return &model.User{TelegramID: telegramID, IsPremium: true, PremiumExpiry: &expiry}, nil
}

func (p *grantingPremium) Features() []string { return model.PremiumFeatures }

func TestPremiumGrant(t *testing.T) {
	tests := []struct {
		name    string
		isAdmin bool
		body    string
		want    int
	}{
		{"admin grants", true, `{"telegram_id":7,"days":30}`, http.StatusOK},
		{"non admin", false, `{"telegram_id":7,"days":30}`, http.StatusForbidden},
		{"zero days", true, `{"telegram_id":7,"days":0}`, http.StatusBadRequest},
		{"too many days", true, `{"telegram_id":7,"days":4000}`, http.StatusBadRequest},
		{"missing user", true, `{"days":30}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &grantingPremium{}
			mux := http.NewServeMux()
			NewPremiumHandler(p, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop()).
				RegisterRoutes(mux, fakeAuth(&middleware.Identity{Actor: model.Actor{TelegramID: 1, IsAdmin: tt.isAdmin}}))

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/premium-management/grant", strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestPremiumFeatures(t *testing.T) {
	mux := http.NewServeMux()
	NewPremiumHandler(&grantingPremium{}, validator.New(), zerolog.Nop()).
		RegisterRoutes(mux, fakeAuth(&middleware.Identity{Actor: model.Actor{TelegramID: 1}}))

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/premium-management/features", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "social_links")
}
