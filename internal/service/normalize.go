package service

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Sentinels the spreadsheet tooling leaves behind for missing cells.
var emptySentinels = map[string]struct{}{
	"":     {},
	"nan":  {},
	"na":   {},
	"none": {},
}

// CleanField trims a raw cell, strips one layer of enclosing double quotes,
// collapses internal whitespace and maps NaN-like sentinels to the empty
// string. Every cell of an upload passes through here before validation.
func CleanField(v string) string {
	v = strings.TrimSpace(v)
	if _, ok := emptySentinels[strings.ToLower(v)]; ok {
		return ""
	}
	if len(v) >= 2 && v[0] == '"' && v[len(v)-1] == '"' {
		v = v[1 : len(v)-1]
	}
	return strings.Join(strings.Fields(v), " ")
}

var accentStripper = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeName produces the stable comparison key for a person's name:
// cleaned, accent-stripped, lowercased, single-spaced. It is the deputy's
// identity key across every import.
func NormalizeName(name string) string {
	name = CleanField(name)
	if name == "" {
		return ""
	}
	if stripped, _, err := transform.String(accentStripper, name); err == nil {
		name = stripped
	}
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
