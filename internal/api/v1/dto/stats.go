package dto

import "dominoboard/internal/model"

// StatsSubmitDTO is an admin's stats entry for a player on one platform
type StatsSubmitDTO struct {
	TelegramID int64   `json:"telegram_id" validate:"required,gt=0"`
	PlatformID string  `json:"platform_id" validate:"required,max=64"`
	Wins       *int    `json:"wins" validate:"required,gte=0"`
	Losses     *int    `json:"losses" validate:"required,gte=0"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=1000"`
}

func (d StatsSubmitDTO) ToModel() model.StatsSubmission {
	return model.StatsSubmission{
		TelegramID: d.TelegramID,
		PlatformID: d.PlatformID,
		Wins:       *d.Wins,
		Losses:     *d.Losses,
		Notes:      d.Notes,
	}
}

type VerificationUpdateDTO struct {
	Status string `json:"status" validate:"required,oneof=pending verified disputed"`
}

type EvidenceUploadRequestDTO struct {
	PlatformID  string `json:"platform_id" validate:"required,max=64"`
	ContentType string `json:"content_type" validate:"required,oneof=image/png image/jpeg image/webp"`
}

type EvidenceUploadResponseDTO struct {
	EvidenceID  string `json:"evidence_id"`
	StoragePath string `json:"storage_path"`
	UploadURL   string `json:"upload_url"`
}

type EvidenceDTO struct {
	*model.StatsEvidence
	DownloadURL string `json:"download_url"`
}
