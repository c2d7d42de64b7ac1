package handler

import (
	"net/http"
	"strings"

	"dominoboard/internal/api/v1/dto"
	"dominoboard/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// SubscriptionHandler handles checkout and subscription management endpoints.
type SubscriptionHandler struct {
	stripeSvc service.CheckoutService
	subSvc    service.SubscriptionService
	validate  *validator.Validate
	logger    zerolog.Logger
}

// NewSubscriptionHandler creates a new SubscriptionHandler.
func NewSubscriptionHandler(stripeSvc service.CheckoutService, subSvc service.SubscriptionService, v *validator.Validate, logger zerolog.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{stripeSvc: stripeSvc, subSvc: subSvc, validate: v, logger: logger.With().Str("handler", "subscription").Logger()}
}

// RegisterRoutes registers the subscription endpoints.
func (h *SubscriptionHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler) {
	mux.HandleFunc("/checkout/plans", h.Plans)
	mux.Handle("/checkout/create-session", authMiddleware(http.HandlerFunc(h.Checkout)))
	mux.Handle("/subscription-management/", authMiddleware(http.HandlerFunc(h.handleSubscription)))
}

func (h *SubscriptionHandler) handleSubscription(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/subscription-management")
	switch {
	case r.Method == http.MethodGet && path == "/subscription":
		h.get(w, r)
	case r.Method == http.MethodPost && path == "/cancel":
		h.cancel(w, r, true)
	case r.Method == http.MethodPost && path == "/resume":
		h.cancel(w, r, false)
	case r.Method == http.MethodPost && path == "/portal":
		h.Portal(w, r)
	default:
		http.NotFound(w, r)
	}
}

// Plans godoc
// @Summary List premium plans
// @Tags subscriptions
// @Produce json
// @Success 200 {array} model.Plan
// @Router /checkout/plans [get]
func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, h.stripeSvc.Plans())
}

// Checkout godoc
// @Summary Initiate a Stripe Checkout session for a premium plan
// @Description Creates a Stripe Checkout session and returns its URL.
// @Tags subscriptions
// @Accept json
// @Produce json
// @Param subscription body dto.SubscriptionCheckoutRequest true "Subscription checkout request"
// @Success 200 {object} dto.URLResponse "URL of the Stripe Checkout session"
// @Failure 400 {object} map[string]string "invalid request payload"
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 409 {object} map[string]string "already subscribed"
// @Failure 502 {object} map[string]string "failed to create checkout session"
// @Router /checkout/create-session [post]
func (h *SubscriptionHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.SubscriptionCheckoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	url, err := h.stripeSvc.CreateCheckoutSession(r.Context(), id.TelegramID, req.Plan)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create checkout session")
		return
	}
	writeJSON(w, http.StatusOK, dto.URLResponse{URL: url})
}

func (h *SubscriptionHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	sub, err := h.subSvc.Get(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to fetch subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// cancel schedules or clears cancellation at period end.
func (h *SubscriptionHandler) cancel(w http.ResponseWriter, r *http.Request, cancel bool) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	update := h.subSvc.Resume
	if cancel {
		update = h.subSvc.Cancel
	}
	sub, err := update(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update subscription")
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// Portal godoc
// @Summary Create a Stripe Customer Portal session
// @Description Generates a Stripe Customer Portal session URL for the authenticated user.
// @Tags subscriptions
// @Produce json
// @Success 200 {object} dto.URLResponse "URL of the Customer Portal session"
// @Failure 401 {object} map[string]string "unauthorized"
// @Failure 404 {object} map[string]string "no stripe customer for user"
// @Router /subscription-management/portal [post]
func (h *SubscriptionHandler) Portal(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	url, err := h.subSvc.PortalURL(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create portal session")
		return
	}
	writeJSON(w, http.StatusOK, dto.URLResponse{URL: url})
}
