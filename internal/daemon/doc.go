// Package daemon guards the long-running subwatch process.
//
// A flock-based lock file keeps two daemons from polling the same tree, and a
// pid file records which process holds it so `subwatch check` can report it.
package daemon
