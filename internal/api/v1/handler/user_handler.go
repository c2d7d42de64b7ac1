package handler

import (
	"net/http"
	"strconv"
	"strings"

	"dominoboard/internal/api/v1/dto"
	"dominoboard/internal/model"
	"dominoboard/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

type UserHandler struct {
	userService    service.UserService
	premiumService service.PremiumService
	statsService   service.StatsService
	validate       *validator.Validate
	logger         zerolog.Logger
}

func NewUserHandler(userService service.UserService, premiumService service.PremiumService, statsService service.StatsService, v *validator.Validate, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		userService:    userService,
		premiumService: premiumService,
		statsService:   statsService,
		validate:       v,
		logger:         logger.With().Str("handler", "user").Logger(),
	}
}

// RegisterRoutes mounts v1 user routes
func (h *UserHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/user-management/", authMw(http.HandlerFunc(h.handleUsers)))
}

func (h *UserHandler) handleUsers(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/user-management")
	switch {
	case r.Method == http.MethodPost && path == "/auth":
		h.authenticate(w, r)
	case r.Method == http.MethodGet && path == "/profile":
		h.getProfile(w, r)
	case r.Method == http.MethodPut && path == "/profile":
		h.updateProfile(w, r)
	case r.Method == http.MethodGet && strings.HasPrefix(path, "/users/"):
		h.getPublicUser(w, r, strings.TrimPrefix(path, "/users/"))
	case r.Method == http.MethodGet && path == "/stats":
		h.getStats(w, r)
	case r.Method == http.MethodPost && path == "/verified-badge":
		h.setVerifiedBadge(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *UserHandler) respondUser(w http.ResponseWriter, r *http.Request, status int, u *model.User, isAdmin bool) {
	premium, err := h.premiumService.IsActive(r.Context(), u)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to resolve premium")
		return
	}
	writeJSON(w, status, dto.NewUserResponse(u, premium, isAdmin))
}

// authenticate godoc
// @Summary Sign in with Telegram init data
// @Description Creates the user on first sign-in and refreshes the Telegram profile afterwards.
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 401 {object} map[string]string "invalid init data"
// @Router /user-management/auth [post]
func (h *UserHandler) authenticate(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if id.Profile.TelegramID == 0 {
		writeError(w, http.StatusBadRequest, "telegram init data required")
		return
	}
	u, err := h.userService.Authenticate(r.Context(), id.Profile)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to authenticate user")
		return
	}
	h.respondUser(w, r, http.StatusOK, u, id.IsAdmin)
}

// getProfile godoc
// @Summary Get the caller's profile
// @Tags users
// @Produce json
// @Success 200 {object} dto.UserResponseDTO
// @Failure 404 {object} map[string]string "user not found"
// @Router /user-management/profile [get]
func (h *UserHandler) getProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	u, err := h.userService.Get(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch profile")
		return
	}
	h.respondUser(w, r, http.StatusOK, u, id.IsAdmin)
}

// updateProfile godoc
// @Summary Update platform and social links
// @Description Social links require an active premium subscription.
// @Tags users
// @Accept json
// @Produce json
// @Param profile body dto.ProfileUpdateDTO true "Profile update"
// @Success 200 {object} dto.UserResponseDTO
// @Failure 400 {object} map[string]string "validation failed"
// @Failure 403 {object} map[string]string "premium subscription required"
// @Router /user-management/profile [put]
func (h *UserHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.ProfileUpdateDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	u, err := h.userService.UpdateProfile(r.Context(), id.TelegramID, model.ProfileUpdate{
		PlatformID:       req.PlatformID,
		PlatformUsername: req.PlatformUsername,
		SocialLinks:      req.SocialLinks,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update profile")
		return
	}
	h.respondUser(w, r, http.StatusOK, u, id.IsAdmin)
}

func (h *UserHandler) getPublicUser(w http.ResponseWriter, r *http.Request, rawID string) {
	telegramID, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil || telegramID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid telegram id")
		return
	}
	u, err := h.userService.GetPublic(r.Context(), telegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch user")
		return
	}
	premium, err := h.premiumService.IsActive(r.Context(), u)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to resolve premium")
		return
	}
	writeJSON(w, http.StatusOK, dto.NewPublicUser(u, premium))
}

// getStats returns the caller's stats, or another player's when telegram_id is given.
func (h *UserHandler) getStats(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	telegramID := id.TelegramID
	if raw := r.URL.Query().Get("telegram_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid telegram_id")
			return
		}
		telegramID = parsed
	}
	stats, err := h.statsService.ListForUser(r.Context(), telegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *UserHandler) setVerifiedBadge(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.VerifiedBadgeDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	u, err := h.userService.SetVerifiedBadge(r.Context(), id.Actor, req.TelegramID, *req.Verified)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to set verified badge")
		return
	}
	h.respondUser(w, r, http.StatusOK, u, false)
}
