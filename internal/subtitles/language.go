package subtitles

import (
	"log/slog"
	"strings"
	"unicode"

	"github.com/abadojack/whatlanggo"

	"subwatch/internal/logging"
)

// minSniffRunes is the least amount of dialogue text worth classifying.
const minSniffRunes = 200

// DetectLanguage returns the ISO 639-1 code of the dialogue in a subtitle
// payload and whether whatlanggo considers the guess reliable. Cue numbers,
// timing lines, and markup are stripped first.
func DetectLanguage(data []byte) (string, bool) {
	text := dialogueText(string(data))
	if len([]rune(text)) < minSniffRunes {
		return "", false
	}
	info := whatlanggo.Detect(text)
	code := info.Lang.Iso6391()
	if code == "" {
		return "", false
	}
	return code, info.IsReliable()
}

func (f *Fetcher) checkLanguage(logger *slog.Logger, path string, data []byte) {
	detected, reliable := DetectLanguage(data)
	if !reliable || detected == f.language.API {
		return
	}
	logging.WarnWithContext(logger, "subtitle language differs from target", "subtitle_language_mismatch",
		logging.String("subtitle_path", path),
		logging.String("detected_language", detected),
		logging.String("target_language", f.language.API),
		logging.String(logging.FieldErrorHint, "replace the file manually or delete it to refetch next pass"),
		logging.String(logging.FieldImpact, "subtitle kept; it may be in the wrong language"),
	)
}

func dialogueText(raw string) string {
	var b strings.Builder
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(line, "\ufeff"))
		if line == "" || strings.Contains(line, "-->") || isDigits(line) {
			continue
		}
		line = stripMarkup(line)
		if line == "" {
			continue
		}
		b.WriteString(line)
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func stripMarkup(line string) string {
	var b strings.Builder
	depth := 0
	for _, r := range line {
		switch r {
		case '<', '{':
			depth++
		case '>', '}':
			if depth > 0 {
				depth--
			}
		default:
			if depth == 0 {
				b.WriteRune(r)
			}
		}
	}
	return strings.TrimSpace(b.String())
}
