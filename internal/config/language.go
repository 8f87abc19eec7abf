package config

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
)

// Language carries the two spellings of the target subtitle language: the
// three letter code used in sibling file names and the two letter code the
// OpenSubtitles REST API expects.
type Language struct {
	File string
	API  string
}

// ParseLanguage accepts ISO 639-1 or ISO 639-2 codes ("en", "eng").
func ParseLanguage(value string) (Language, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return Language{}, fmt.Errorf("language code is empty")
	}
	base, err := language.ParseBase(trimmed)
	if err != nil {
		return Language{}, fmt.Errorf("parse language %q: %w", value, err)
	}
	file := base.ISO3()
	if file == "" {
		return Language{}, fmt.Errorf("language %q has no ISO 639-2 code", value)
	}
	return Language{File: file, API: base.String()}, nil
}
