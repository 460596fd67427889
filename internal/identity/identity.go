// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package identity canonicalizes record labels into matching keys.
// Two records with the same key are treated as the same logical entity
// even when their identifiers differ.
package identity

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/pack-sync/pkg/types"
)

// KeySeparator joins the normalized name and the type in a match key.
const KeySeparator = "::"

// Normalizer folds display names into a comparable form. The zero value
// only lowercases and trims.
type Normalizer struct {
	RemoveDiacritics   bool
	CollapseWhitespace bool
}

// New returns a Normalizer configured from cfg.
func New(cfg types.NormalizeConfig) Normalizer {
	return Normalizer{
		RemoveDiacritics:   cfg.RemoveDiacritics,
		CollapseWhitespace: cfg.CollapseWhitespace,
	}
}

// Normalize strips diacritics (if enabled), lowercases, collapses
// whitespace (if enabled) and trims.
func (n Normalizer) Normalize(name string) string {
	if name == "" {
		return ""
	}
	s := name
	if n.RemoveDiacritics {
		s = stripDiacritics(s)
	}
	s = strings.ToLower(s)
	if n.CollapseWhitespace {
		return strings.Join(strings.Fields(s), " ")
	}
	return strings.TrimSpace(s)
}

// MatchKey returns the key for a record of the given name and type.
// An empty type falls back to defaultType.
func (n Normalizer) MatchKey(name, typ, defaultType string) string {
	if typ == "" {
		typ = defaultType
	}
	return n.Normalize(name) + KeySeparator + typ
}

// RecordKey is MatchKey applied to a record's name and type.
func (n Normalizer) RecordKey(rec types.Record, defaultType string) string {
	return n.MatchKey(rec.Name(), rec.Type(), defaultType)
}

// stripDiacritics decomposes s (NFD) and drops nonspacing marks, so
// "Ō" becomes "O".
func stripDiacritics(s string) string {
	decomposed := norm.NFD.String(s)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
