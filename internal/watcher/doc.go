// Package watcher drives the poll loop: every pass logs in to OpenSubtitles,
// walks the media tree, fetches a subtitle for each video that lacks one, and
// logs out. Passes repeat on a cron schedule until the context is cancelled.
//
// A pass carries no memory of earlier passes. Videos that failed are simply
// tried again next time, and the fetch history is an audit trail only.
package watcher
