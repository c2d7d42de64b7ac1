package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dominoboard/internal/middleware"
	"dominoboard/internal/model"
	"dominoboard/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

const statsRowID = "3f1c2a54-8a1e-4c1f-9a57-2f0d1b7e6c10"

type stubStats struct {
	service.StatsService
	calls []string
}

func (s *stubStats) Submit(_ context.Context, actor model.Actor, sub model.StatsSubmission) (*model.Stats, error) {
	s.calls = append(s.calls, "submit")
	if !actor.IsAdmin {
		return nil, service.ErrForbidden
	}
	return &model.Stats{ID: statsRowID, PlatformID: sub.PlatformID, Wins: sub.Wins, Losses: sub.Losses}, nil
}

func (s *stubStats) SetVerification(_ context.Context, actor model.Actor, statsID string, status model.VerificationStatus) (*model.Stats, error) {
	s.calls = append(s.calls, "verify "+statsID)
	if !actor.IsAdmin {
		return nil, service.ErrForbidden
	}
	if statsID != statsRowID {
		return nil, service.ErrStatsNotFound
	}
	return &model.Stats{ID: statsID, VerificationStatus: status}, nil
}

func (s *stubStats) Delete(_ context.Context, actor model.Actor, statsID string) error {
	s.calls = append(s.calls, "delete "+statsID)
	if !actor.IsAdmin {
		return service.ErrForbidden
	}
	return nil
}

func (s *stubStats) CreateEvidenceUpload(_ context.Context, telegramID int64, platformID, contentType string) (*service.EvidenceUpload, error) {
	s.calls = append(s.calls, "upload")
	return &service.EvidenceUpload{
		Evidence:  &model.StatsEvidence{ID: "ev-1", StoragePath: "evidence/1.png"},
		UploadURL: "https://storage.example/put",
	}, nil
}

func (s *stubStats) ListEvidence(_ context.Context, actor model.Actor, telegramID int64) ([]service.EvidenceDownload, error) {
	s.calls = append(s.calls, "evidence")
	return nil, nil
}

func newStatsMux(stats *stubStats, actor model.Actor) *http.ServeMux {
	mux := http.NewServeMux()
	h := NewStatsHandler(stats, validator.New(validator.WithRequiredStructEnabled()), zerolog.Nop())
	h.RegisterRoutes(mux, fakeAuth(&middleware.Identity{Actor: actor}))
	return mux
}

func TestStatsRoutes(t *testing.T) {
	admin := model.Actor{TelegramID: 1, IsAdmin: true}
	player := model.Actor{TelegramID: 7}
	submit := `{"telegram_id":7,"platform_id":"plato","wins":3,"losses":1}`

	tests := []struct {
		name     string
		actor    model.Actor
		method   string
		path     string
		body     string
		want     int
		wantCall string
	}{
		{"admin submits", admin, http.MethodPost, "/stats-management/stats", submit, http.StatusOK, "submit"},
		{"player submits", player, http.MethodPost, "/stats-management/stats", submit, http.StatusForbidden, "submit"},
		{"negative wins", admin, http.MethodPost, "/stats-management/stats", `{"telegram_id":7,"platform_id":"plato","wins":-1,"losses":0}`, http.StatusBadRequest, ""},
		{"admin verifies", admin, http.MethodPut, "/stats-management/stats/" + statsRowID + "/verification", `{"status":"verified"}`, http.StatusOK, "verify " + statsRowID},
		{"player verifies", player, http.MethodPut, "/stats-management/stats/" + statsRowID + "/verification", `{"status":"verified"}`, http.StatusForbidden, "verify " + statsRowID},
		{"unknown status", admin, http.MethodPut, "/stats-management/stats/" + statsRowID + "/verification", `{"status":"approved"}`, http.StatusBadRequest, ""},
		{"verify malformed id", admin, http.MethodPut, "/stats-management/stats/not-a-uuid/verification", `{"status":"verified"}`, http.StatusNotFound, ""},
		{"verify nested id", admin, http.MethodPut, "/stats-management/stats/a/b/verification", `{"status":"verified"}`, http.StatusNotFound, ""},
		{"admin deletes", admin, http.MethodDelete, "/stats-management/stats/" + statsRowID, "", http.StatusNoContent, "delete " + statsRowID},
		{"player deletes", player, http.MethodDelete, "/stats-management/stats/" + statsRowID, "", http.StatusForbidden, "delete " + statsRowID},
		{"delete malformed id", admin, http.MethodDelete, "/stats-management/stats/12345", "", http.StatusNotFound, ""},
		{"delete empty id", admin, http.MethodDelete, "/stats-management/stats/", "", http.StatusNotFound, ""},
		{"upload url", player, http.MethodPost, "/stats-management/evidence/upload-url", `{"platform_id":"plato","content_type":"image/png"}`, http.StatusOK, "upload"},
		{"upload gif", player, http.MethodPost, "/stats-management/evidence/upload-url", `{"platform_id":"plato","content_type":"image/gif"}`, http.StatusBadRequest, ""},
		{"evidence list", admin, http.MethodGet, "/stats-management/evidence?telegram_id=7", "", http.StatusOK, "evidence"},
		{"evidence without player", admin, http.MethodGet, "/stats-management/evidence", "", http.StatusBadRequest, ""},
		{"get stats row", admin, http.MethodGet, "/stats-management/stats/" + statsRowID, "", http.StatusNotFound, ""},
		{"patch submit", admin, http.MethodPatch, "/stats-management/stats", submit, http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := &stubStats{}
			mux := newStatsMux(stats, tt.actor)

			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body)))
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.wantCall == "" {
				assert.Empty(t, stats.calls)
			} else {
				assert.Equal(t, []string{tt.wantCall}, stats.calls)
			}
		})
	}
}
