// Package opensubtitles is a small client for the OpenSubtitles REST API.
//
// Authentication is explicit: Login returns a Session that every Search,
// Download, and Logout call takes as an argument, so the client itself holds
// no per-user state and can be shared.
package opensubtitles
