package history

import "time"

// Attempt is one fetch attempt for one video during one pass.
type Attempt struct {
	ID           int64
	PassID       string
	MediaPath    string
	Outcome      string
	SubtitlePath string
	FileID       int64
	Error        string
	At           time.Time
}

// Summary counts attempts by outcome.
type Summary struct {
	Total     int
	ByOutcome map[string]int
	LastAt    time.Time
}
