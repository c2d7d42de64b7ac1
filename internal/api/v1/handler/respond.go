package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"dominoboard/internal/middleware"
	"dominoboard/internal/service"

	"github.com/rs/zerolog"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInvalidPlan),
		errors.Is(err, service.ErrInvalidVerificationStatus),
		errors.Is(err, service.ErrInvalidPayload):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrForbidden), errors.Is(err, service.ErrPremiumRequired):
		return http.StatusForbidden
	case errors.Is(err, service.ErrUserNotFound),
		errors.Is(err, service.ErrStatsNotFound),
		errors.Is(err, service.ErrPlatformNotFound),
		errors.Is(err, service.ErrVerseNotFound),
		errors.Is(err, service.ErrNoSubscription),
		errors.Is(err, service.ErrNoStripeCustomer):
		return http.StatusNotFound
	case errors.Is(err, service.ErrAlreadySubscribed), errors.Is(err, service.ErrDuplicateEvent):
		return http.StatusConflict
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Internal errors are logged and their text hidden.
func writeServiceError(w http.ResponseWriter, lg zerolog.Logger, err error, msg string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		lg.Error().Err(err).Msg(msg)
		if status == http.StatusBadGateway {
			writeError(w, status, msg)
			return
		}
		writeError(w, status, "internal server error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func identity(w http.ResponseWriter, r *http.Request) (*middleware.Identity, bool) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return nil, false
	}
	return id, true
}

// queryInt reads an optional integer query parameter.
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
