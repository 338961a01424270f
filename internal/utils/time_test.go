package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		t    time.Time
		want string
	}{
		{"zero", time.Time{}, "-"},
		{"future", now.Add(time.Minute), "just now"},
		{"seconds", now.Add(-42 * time.Second), "42s ago"},
		{"minutes", now.Add(-3*time.Minute - 10*time.Second), "3m ago"},
		{"hours", now.Add(-5 * time.Hour), "5h ago"},
		{"day and a half", now.Add(-36 * time.Hour), "36h ago"},
		{"days", now.Add(-4 * 24 * time.Hour), "4d ago"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatAge(tt.t, now))
		})
	}
}
