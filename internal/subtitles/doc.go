// Package subtitles fetches a missing subtitle for one video file.
//
// A Fetcher waits out the configured throttle, searches OpenSubtitles for the
// file, downloads the first candidate, and writes its first payload beside the
// video as <video>.<lang>.<format>. Candidates are taken in service order with
// no scoring. Transient API failures are retried with exponential backoff
// inside a single fetch; every other failure is wrapped with ErrSearch,
// ErrDownload, or ErrWrite and returned to the caller.
package subtitles
