package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanField(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "PSD", "PSD"},
		{"surrounding space", "  PSD  ", "PSD"},
		{"internal whitespace collapsed", "João  Pedro\tSilva", "João Pedro Silva"},
		{"enclosing quotes stripped", `"Falta Justificada (FJ)"`, "Falta Justificada (FJ)"},
		{"single layer of quotes only", `""PSD""`, `"PSD"`},
		{"nan sentinel", "NaN", ""},
		{"na sentinel", "na", ""},
		{"none sentinel", "None", ""},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanField(tt.in))
		})
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"accents stripped", "João Álvaro Conceição", "joao alvaro conceicao"},
		{"case folded", "ANA GOMES", "ana gomes"},
		{"whitespace collapsed", "  Ana   Gomes ", "ana gomes"},
		{"quoted input", `"José Manuel Pureza"`, "jose manuel pureza"},
		{"empty", "", ""},
		{"nan-like", "nan", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeName(tt.in))
		})
	}
}
