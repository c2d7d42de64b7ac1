package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"dominoboard/internal/service"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: days", service.ErrInvalidInput), http.StatusBadRequest},
		{service.ErrInvalidPlan, http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{service.ErrPremiumRequired, http.StatusForbidden},
		{service.ErrUserNotFound, http.StatusNotFound},
		{service.ErrNoSubscription, http.StatusNotFound},
		{service.ErrAlreadySubscribed, http.StatusConflict},
		{fmt.Errorf("%w: stripe", service.ErrUpstream), http.StatusBadGateway},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
