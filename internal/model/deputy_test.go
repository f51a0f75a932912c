package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttendancePct(t *testing.T) {
	tests := []struct {
		name       string
		presences  int
		penalizing int
		want       float64
	}{
		{"no countable sittings", 0, 0, 0.0},
		{"only justified absences ignored", 0, 0, 0.0},
		{"regular attendance", 18, 2, 90.0},
		{"perfect attendance", 10, 0, 100.0},
		{"never present", 0, 5, 0.0},
		{"rounded to two decimals", 1, 2, 33.33},
		{"rounds half up", 2, 1, 66.67},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AttendancePct(tt.presences, tt.penalizing))
		})
	}
}
