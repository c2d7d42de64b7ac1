package handler

import (
	"net/http"
	"strings"

	"dominoboard/internal/repository"
	"dominoboard/internal/service"

	"github.com/rs/zerolog"
)

type LeaderboardHandler struct {
	leaderboardService service.LeaderboardService
	platformRepo       repository.PlatformRepository
	logger             zerolog.Logger
}

func NewLeaderboardHandler(leaderboardService service.LeaderboardService, platformRepo repository.PlatformRepository, logger zerolog.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{
		leaderboardService: leaderboardService,
		platformRepo:       platformRepo,
		logger:             logger.With().Str("handler", "leaderboard").Logger(),
	}
}

// RegisterRoutes mounts the boards publicly and the caller's rank behind auth.
func (h *LeaderboardHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.HandleFunc("/leaderboard/", h.handleLeaderboard)
	mux.Handle("/leaderboard/me", authMw(http.HandlerFunc(h.me)))
	mux.HandleFunc("/platforms", h.listPlatforms)
}

func (h *LeaderboardHandler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/leaderboard")
	switch {
	case path == "/global":
		h.board(w, r, "")
	case strings.HasPrefix(path, "/platform/"):
		id := strings.TrimPrefix(path, "/platform/")
		if id == "" || strings.Contains(id, "/") {
			http.NotFound(w, r)
			return
		}
		h.board(w, r, id)
	default:
		http.NotFound(w, r)
	}
}

// board godoc
// @Summary Ranked leaderboard page
// @Description Verified stats only, ordered by win rate, wins, then games played.
// @Tags leaderboard
// @Produce json
// @Param offset query int false "Offset"
// @Param limit query int false "Page size (1-100, default 50)"
// @Success 200 {object} service.Board
// @Failure 400 {object} map[string]string "invalid paging"
// @Router /leaderboard/global [get]
// @Router /leaderboard/platform/{id} [get]
func (h *LeaderboardHandler) board(w http.ResponseWriter, r *http.Request, platformID string) {
	offset, err := queryInt(r, "offset")
	if err != nil {
		writeError(w, http.StatusBadRequest, "offset must be an integer")
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, http.StatusBadRequest, "limit must be an integer")
		return
	}
	if r.URL.Query().Has("limit") && limit == 0 {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
		return
	}

	var board *service.Board
	if platformID == "" {
		board, err = h.leaderboardService.Global(r.Context(), offset, limit)
	} else {
		board, err = h.leaderboardService.Platform(r.Context(), platformID, offset, limit)
	}
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (h *LeaderboardHandler) me(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	id, ok := identity(w, r)
	if !ok {
		return
	}
	ranks, err := h.leaderboardService.UserRank(r.Context(), id.TelegramID)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load rank")
		return
	}
	writeJSON(w, http.StatusOK, ranks)
}

// listPlatforms godoc
// @Summary Active gaming platforms
// @Tags platforms
// @Produce json
// @Success 200 {array} model.Platform
// @Router /platforms [get]
func (h *LeaderboardHandler) listPlatforms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	platforms, err := h.platformRepo.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to list platforms")
		return
	}
	writeJSON(w, http.StatusOK, platforms)
}
