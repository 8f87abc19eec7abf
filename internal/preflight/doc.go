// Package preflight verifies that subwatch can do its job before the daemon
// starts: the media tree is reachable, credentials are configured, and the
// OpenSubtitles account accepts them.
package preflight
