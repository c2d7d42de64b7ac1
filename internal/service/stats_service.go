package service

import (
	"context"
	"fmt"
	"strconv"

	"dominoboard/internal/model"
	"dominoboard/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// EvidenceStorage presigns object storage URLs for evidence screenshots.
type EvidenceStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, error)
	PresignDownload(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
}

// LeaderboardInvalidator drops cached boards after stats change.
type LeaderboardInvalidator interface {
	Invalidate(ctx context.Context, platformID string)
}

var evidenceExtensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// EvidenceUpload is a presigned PUT target for one screenshot.
type EvidenceUpload struct {
	Evidence  *model.StatsEvidence
	UploadURL string
}

// EvidenceDownload pairs an evidence row with a short-lived GET URL.
type EvidenceDownload struct {
	Evidence    *model.StatsEvidence
	DownloadURL string
}

type StatsService interface {
	Submit(ctx context.Context, actor model.Actor, sub model.StatsSubmission) (*model.Stats, error)
	SetVerification(ctx context.Context, actor model.Actor, statsID string, status model.VerificationStatus) (*model.Stats, error)
	Delete(ctx context.Context, actor model.Actor, statsID string) error
	ListForUser(ctx context.Context, telegramID int64) ([]*model.Stats, error)
	CreateEvidenceUpload(ctx context.Context, telegramID int64, platformID, contentType string) (*EvidenceUpload, error)
	ListEvidence(ctx context.Context, actor model.Actor, telegramID int64) ([]EvidenceDownload, error)
}

type statsService struct {
	statsRepo    repository.StatsRepository
	userRepo     repository.UserRepository
	platformRepo repository.PlatformRepository
	storage      EvidenceStorage
	boards       LeaderboardInvalidator
	events       *EventEmitter
	logger       zerolog.Logger
}

func NewStatsService(
	statsRepo repository.StatsRepository,
	userRepo repository.UserRepository,
	platformRepo repository.PlatformRepository,
	storage EvidenceStorage,
	boards LeaderboardInvalidator,
	events *EventEmitter,
	logger zerolog.Logger,
) StatsService {
	return &statsService{
		statsRepo:    statsRepo,
		userRepo:     userRepo,
		platformRepo: platformRepo,
		storage:      storage,
		boards:       boards,
		events:       events,
		logger:       logger.With().Str("service", "StatsService").Logger(),
	}
}

func (s *statsService) requirePlatform(ctx context.Context, platformID string) error {
	p, err := s.platformRepo.Get(ctx, platformID)
	if err != nil {
		return err
	}
	if p == nil || !p.IsActive {
		return ErrPlatformNotFound
	}
	return nil
}

func (s *statsService) Submit(ctx context.Context, actor model.Actor, sub model.StatsSubmission) (*model.Stats, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if sub.Wins < 0 || sub.Losses < 0 {
		return nil, fmt.Errorf("%w: wins and losses must be non-negative", ErrInvalidInput)
	}
	if err := s.requirePlatform(ctx, sub.PlatformID); err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByTelegramID(ctx, sub.TelegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	st, err := s.statsRepo.Upsert(ctx, u.ID, sub.PlatformID, sub.Wins, sub.Losses, sub.Notes)
	if err != nil {
		s.logger.Error().Err(err).Int64("telegram_id", sub.TelegramID).Str("platform_id", sub.PlatformID).Msg("Failed to upsert stats")
		return nil, err
	}
	s.logger.Info().Str("stats_id", st.ID).Int64("telegram_id", sub.TelegramID).Int("wins", st.Wins).Int("losses", st.Losses).Msg("Stats submitted")
	s.boards.Invalidate(ctx, st.PlatformID)
	return st, nil
}

func (s *statsService) SetVerification(ctx context.Context, actor model.Actor, statsID string, status model.VerificationStatus) (*model.Stats, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	if !status.Valid() {
		return nil, ErrInvalidVerificationStatus
	}
	st, err := s.statsRepo.SetVerificationStatus(ctx, statsID, status, actor.VerifierID())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStatsNotFound
	}
	s.boards.Invalidate(ctx, st.PlatformID)

	var eventType string
	switch status {
	case model.VerificationVerified:
		eventType = model.EventStatsVerified
	case model.VerificationDisputed:
		eventType = model.EventStatsDisputed
	}
	if eventType != "" {
		owner, err := s.userRepo.GetByID(ctx, st.UserID)
		if err != nil {
			s.logger.Warn().Err(err).Str("stats_id", st.ID).Msg("Could not load stats owner for event")
		} else if owner != nil {
			s.events.Emit(ctx, model.NewEvent(eventType, owner.TelegramID, map[string]string{
				"platform_id": st.PlatformID,
				"wins":        strconv.Itoa(st.Wins),
				"losses":      strconv.Itoa(st.Losses),
			}))
		}
	}
	return st, nil
}

func (s *statsService) Delete(ctx context.Context, actor model.Actor, statsID string) error {
	if !actor.IsAdmin {
		return ErrForbidden
	}
	st, err := s.statsRepo.GetByID(ctx, statsID)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrStatsNotFound
	}
	deleted, err := s.statsRepo.Delete(ctx, statsID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrStatsNotFound
	}
	s.boards.Invalidate(ctx, st.PlatformID)
	return nil
}

func (s *statsService) ListForUser(ctx context.Context, telegramID int64) ([]*model.Stats, error) {
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	return s.statsRepo.ListByUser(ctx, u.ID)
}

// CreateEvidenceUpload records an evidence row and returns a presigned PUT for it.
func (s *statsService) CreateEvidenceUpload(ctx context.Context, telegramID int64, platformID, contentType string) (*EvidenceUpload, error) {
	ext, ok := evidenceExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported content type %q", ErrInvalidInput, contentType)
	}
	if err := s.requirePlatform(ctx, platformID); err != nil {
		return nil, err
	}
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}

	key := fmt.Sprintf("evidence/%d/%s/%s.%s", telegramID, platformID, uuid.NewString(), ext)
	url, err := s.storage.PresignUpload(ctx, key, contentType)
	if err != nil {
		s.logger.Error().Err(err).Str("key", key).Msg("Failed to presign evidence upload")
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	ev := &model.StatsEvidence{UserID: u.ID, PlatformID: platformID, StoragePath: key}
	if err := s.statsRepo.AddEvidence(ctx, ev); err != nil {
		return nil, err
	}
	return &EvidenceUpload{Evidence: ev, UploadURL: url}, nil
}

func (s *statsService) ListEvidence(ctx context.Context, actor model.Actor, telegramID int64) ([]EvidenceDownload, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	u, err := s.userRepo.GetByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUserNotFound
	}
	rows, err := s.statsRepo.ListEvidence(ctx, u.ID)
	if err != nil {
		return nil, err
	}
	out := make([]EvidenceDownload, 0, len(rows))
	for _, ev := range rows {
		// upload URLs that were never used leave a row without an object
		ok, err := s.storage.Exists(ctx, ev.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		if !ok {
			continue
		}
		url, err := s.storage.PresignDownload(ctx, ev.StoragePath)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
		}
		out = append(out, EvidenceDownload{Evidence: ev, DownloadURL: url})
	}
	return out, nil
}
