package subtitles

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSearch   = errors.New("subtitle search failed")
	ErrDownload = errors.New("subtitle download failed")
	ErrWrite    = errors.New("subtitle write failed")
)

// wrap tags err with marker and a short operation description so callers can
// classify failures with errors.Is.
func wrap(marker error, operation, message string, err error) error {
	detail := strings.TrimSpace(operation)
	if message = strings.TrimSpace(message); message != "" {
		detail += ": " + message
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
