package model

import "time"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationDisputed VerificationStatus = "disputed"
)

func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationVerified, VerificationDisputed:
		return true
	}
	return false
}

// Stats is a player's win/loss record on one platform.
type Stats struct {
	ID                 string             `db:"id" json:"id"`
	UserID             string             `db:"user_id" json:"user_id"`
	PlatformID         string             `db:"platform_id" json:"platform_id"`
	Wins               int                `db:"wins" json:"wins"`
	Losses             int                `db:"losses" json:"losses"`
	GamesPlayed        int                `db:"games_played" json:"games_played"`
	WinRate            float64            `db:"win_rate" json:"win_rate"`
	VerificationStatus VerificationStatus `db:"verification_status" json:"verification_status"`
	VerifiedBy         *int64             `db:"verified_by" json:"verified_by,omitempty"`
	VerifiedAt         *time.Time         `db:"verified_at" json:"verified_at,omitempty"`
	Notes              *string            `db:"notes" json:"notes,omitempty"`
	CreatedAt          time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time          `db:"updated_at" json:"updated_at"`
}

// StatsSubmission is an admin-entered win/loss record for a player on a platform.
type StatsSubmission struct {
	TelegramID int64
	PlatformID string
	Wins       int
	Losses     int
	Notes      *string
}

// StatsEvidence is an uploaded screenshot backing a stats claim.
type StatsEvidence struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	PlatformID  string    `db:"platform_id" json:"platform_id"`
	StoragePath string    `db:"storage_path" json:"storage_path"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

func GamesPlayed(wins, losses int) int {
	return wins + losses
}

// WinRate is wins/(wins+losses), or 0 when no games were played.
func WinRate(wins, losses int) float64 {
	games := GamesPlayed(wins, losses)
	if games <= 0 {
		return 0
	}
	return float64(wins) / float64(games)
}

// Derive recomputes the generated columns from wins and losses.
func (s *Stats) Derive() {
	s.GamesPlayed = GamesPlayed(s.Wins, s.Losses)
	s.WinRate = WinRate(s.Wins, s.Losses)
}
