package handler

import (
	"net/http"
	"strings"

	"dominoboard/internal/api/v1/dto"
	"dominoboard/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type PremiumHandler struct {
	premiumService service.PremiumService
	validate       *validator.Validate
	logger         zerolog.Logger
}

func NewPremiumHandler(premiumService service.PremiumService, v *validator.Validate, logger zerolog.Logger) *PremiumHandler {
	return &PremiumHandler{premiumService: premiumService, validate: v, logger: logger.With().Str("handler", "premium").Logger()}
}

func (h *PremiumHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/premium-management/", authMw(http.HandlerFunc(h.handlePremium)))
}

func (h *PremiumHandler) handlePremium(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/premium-management")
	switch {
	case r.Method == http.MethodGet && path == "/status":
		h.status(w, r)
	case r.Method == http.MethodGet && path == "/features":
		writeJSON(w, http.StatusOK, map[string][]string{"features": h.premiumService.Features()})
	case r.Method == http.MethodPost && path == "/grant":
		h.grant(w, r)
	case r.Method == http.MethodPost && path == "/revoke":
		h.revoke(w, r)
	default:
		http.NotFound(w, r)
	}
}

// status godoc
// @Summary The caller's premium state
// @Description An expired premium flag reads as not premium.
// @Tags premium
// @Produce json
// @Success 200 {object} dto.PremiumStatusDTO
// @Router /premium-management/status [get]
func (h *PremiumHandler) status(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	st, err := h.premiumService.Status(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load premium status")
		return
	}
	writeJSON(w, http.StatusOK, dto.PremiumStatusDTO{
		IsPremium:     st.IsPremium,
		PremiumExpiry: st.PremiumExpiry,
		Source:        st.Source,
		Subscription:  st.Subscription,
		Features:      st.Features,
	})
}

// grant godoc
// @Summary Grant premium days to a player (admin)
// @Tags premium
// @Accept json
// @Produce json
// @Param grant body dto.PremiumGrantDTO true "Grant"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 403 {object} map[string]string "admin access required"
// @Router /premium-management/grant [post]
func (h *PremiumHandler) grant(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.PremiumGrantDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	u, err := h.premiumService.Grant(r.Context(), id.Actor, req.TelegramID, req.Days)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to grant premium")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(u, true, false))
}

func (h *PremiumHandler) revoke(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.PremiumRevokeDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	u, err := h.premiumService.Revoke(r.Context(), id.Actor, req.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to revoke premium")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewUserResponse(u, false, false))
}
