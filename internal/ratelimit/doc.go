// Package ratelimit paces calls to the subtitle service.
//
// Gates sleep on an injectable Clock so callers and tests share one notion of
// time. A fixed-delay gate waits the full interval before every call; a
// minimum-interval gate only waits out whatever remains since the last Mark.
package ratelimit
