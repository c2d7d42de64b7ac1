package handler

import (
	"net/http"
	"strconv"
	"strings"

	"dominoboard/internal/api/v1/dto"
	"dominoboard/internal/model"
	"dominoboard/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type StatsHandler struct {
	statsService service.StatsService
	validate     *validator.Validate
	logger       zerolog.Logger
}

func NewStatsHandler(statsService service.StatsService, v *validator.Validate, logger zerolog.Logger) *StatsHandler {
	return &StatsHandler{statsService: statsService, validate: v, logger: logger.With().Str("handler", "stats").Logger()}
}

func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/stats-management/", authMw(http.HandlerFunc(h.handleStats)))
}

func (h *StatsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/stats-management")
	switch {
	case r.Method == http.MethodPost && path == "/stats":
		h.submit(w, r)
	case r.Method == http.MethodPut && strings.HasPrefix(path, "/stats/") && strings.HasSuffix(path, "/verification"):
		h.setVerification(w, r, strings.TrimSuffix(strings.TrimPrefix(path, "/stats/"), "/verification"))
	case r.Method == http.MethodDelete && strings.HasPrefix(path, "/stats/"):
		h.delete(w, r, strings.TrimPrefix(path, "/stats/"))
	case r.Method == http.MethodPost && path == "/evidence/upload-url":
		h.evidenceUploadURL(w, r)
	case r.Method == http.MethodGet && path == "/evidence":
		h.listEvidence(w, r)
	default:
		http.NotFound(w, r)
	}
}

// validStatsID reports whether a path segment can name a stats row.
func validStatsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// submit godoc
// @Summary Record a player's wins and losses on a platform (admin)
// @Description Changing the numbers resets the verification status to pending.
// @Tags stats
// @Accept json
// @Produce json
// @Param stats body dto.StatsSubmitDTO true "Stats"
// @Success 200 {object} model.Stats
// @Failure 403 {object} map[string]string "admin access required"
// @Router /stats-management/stats [post]
func (h *StatsHandler) submit(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.StatsSubmitDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	st, err := h.statsService.Submit(r.Context(), id.Actor, req.ToModel())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to submit stats")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StatsHandler) setVerification(w http.ResponseWriter, r *http.Request, statsID string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if !validStatsID(statsID) {
		http.NotFound(w, r)
		return
	}
	var req dto.VerificationUpdateDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	st, err := h.statsService.SetVerification(r.Context(), id.Actor, statsID, model.VerificationStatus(req.Status))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to set verification")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *StatsHandler) delete(w http.ResponseWriter, r *http.Request, statsID string) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	if !validStatsID(statsID) {
		http.NotFound(w, r)
		return
	}
	if err := h.statsService.Delete(r.Context(), id.Actor, statsID); err != nil {
		writeServiceError(w, h.logger, err, "failed to delete stats")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// evidenceUploadURL godoc
// @Summary Get a presigned URL to upload a stats screenshot
// @Tags stats
// @Accept json
// @Produce json
// @Param request body dto.EvidenceUploadRequestDTO true "Upload request"
// @Success 200 {object} dto.EvidenceUploadResponseDTO
// @Router /stats-management/evidence/upload-url [post]
func (h *StatsHandler) evidenceUploadURL(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	var req dto.EvidenceUploadRequestDTO
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "validation failed: "+err.Error())
		return
	}
	up, err := h.statsService.CreateEvidenceUpload(r.Context(), id.TelegramID, req.PlatformID, req.ContentType)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to create evidence upload")
		return
	}
	writeJSON(w, http.StatusOK, dto.EvidenceUploadResponseDTO{
		EvidenceID:  up.Evidence.ID,
		StoragePath: up.Evidence.StoragePath,
		UploadURL:   up.UploadURL,
	})
}

func (h *StatsHandler) listEvidence(w http.ResponseWriter, r *http.Request) {
	id, ok := identity(w, r)
	if !ok {
		return
	}
	telegramID, err := strconv.ParseInt(r.URL.Query().Get("telegram_id"), 10, 64)
	if err != nil || telegramID <= 0 {
		writeError(w, http.StatusBadRequest, "telegram_id is required")
		return
	}
	list, err := h.statsService.ListEvidence(r.Context(), id.Actor, telegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list evidence")
		return
	}
	resp := make([]dto.EvidenceDTO, 0, len(list))
	for _, e := range list {
		resp = append(resp, dto.EvidenceDTO{StatsEvidence: e.Evidence, DownloadURL: e.DownloadURL})
	}
	writeJSON(w, http.StatusOK, resp)
}
