package handler

import (
	"net/http"
	"time"

	"dominoboard/internal/service"

	"github.com/rs/zerolog"
)

type VerseHandler struct {
	verseService service.VerseService
	logger       zerolog.Logger
	now          func() time.Time
}

func NewVerseHandler(verseService service.VerseService, logger zerolog.Logger) *VerseHandler {
	return &VerseHandler{verseService: verseService, logger: logger.With().Str("handler", "verse").Logger(), now: time.Now}
}

func (h *VerseHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("/verses/daily", h.daily)
	mux.Handle("/verses/random", authMw(http.HandlerFunc(h.random)))
}

// daily godoc
// @Summary Verse of the day
// @Description The same verse is returned for the whole UTC day.
// @Tags verses
// @Produce json
// @Success 200 {object} model.Verse
// @Router /verses/daily [get]
func (h *VerseHandler) daily(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	v, err := h.verseService.Daily(r.Context(), h.now())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load daily verse")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// random godoc
// @Summary A random verse (premium)
// @Tags verses
// @Produce json
// @Success 200 {object} model.Verse
// @Failure 403 {object} map[string]string "premium subscription required"
// @Router /verses/random [get]
func (h *VerseHandler) random(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	v, err := h.verseService.Random(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load verse")
		return
	}
	writeJSON(w, http.StatusOK, v)
}
