// Package scan walks the media tree depth-first, pruning ignored folders and
// handing every remaining entry to a visit function that decides whether to
// keep descending.
package scan
