// Package history records every subtitle fetch attempt in a SQLite database.
//
// The store is an audit log for the `subwatch history` command. Nothing in the
// scan path reads it back: a file with a failed attempt is retried on the next
// pass exactly like one that was never tried.
package history
