package logger

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		raw  string
		want zerolog.Level
	}{
		{"", zerolog.InfoLevel},
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"nonsense", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.raw), "raw=%q", tt.raw)
	}
}

func TestNewHonoursLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	l := New()
	assert.Equal(t, zerolog.WarnLevel, l.GetLevel())
}
