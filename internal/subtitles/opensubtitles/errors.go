package opensubtitles

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoToken is returned when login succeeds at the HTTP level but the
	// response carries no usable token.
	ErrNoToken = errors.New("opensubtitles: login returned no token")
	// ErrNoSession is returned when an authenticated call is made without a Session.
	ErrNoSession = errors.New("opensubtitles: no active session")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Op      string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "no details"
	}
	return fmt.Sprintf("opensubtitles: %s failed (status %d): %s", e.Op, e.Status, msg)
}

type errorPayload struct {
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

func (p errorPayload) text() string {
	if p.Message != "" {
		return p.Message
	}
	return strings.Join(p.Errors, "; ")
}
