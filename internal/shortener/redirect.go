package shortener

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Source is the short path segment a redirect is registered under.
type Source string

// Redirect represents a registered short-name-to-destination mapping.
type Redirect struct {
	Source      Source    `json:"source"`
	Destination string    `json:"destination"`
	IsPrivate   bool      `json:"isPrivate"`
	Count       int64     `json:"count"`
	User        string    `json:"user"`
	Created     time.Time `json:"created"`
}

var (
	// ErrNotFound is returned when no redirect exists for a source.
	ErrNotFound = errors.New("redirect not found")
	// ErrConflict is returned when creating a source that already exists.
	ErrConflict = errors.New("source already exists")
)

// ReservedPrefix is the path prefix owned by the admin and auth routes.
// Sources containing it would shadow application routes.
const ReservedPrefix = "_app"

var (
	errUnsafeSource   = errors.New("the source contains unsafe url characters")
	errReservedSource = errors.New("the source cannot contain the reserved segment " + ReservedPrefix)
)

// ValidateSource checks that a source is printable-URL-safe and does not
// collide with the reserved application prefix.
func ValidateSource(source string) error {
	if source == "" {
		return errUnsafeSource
	}

	for _, segment := range strings.Split(source, "/") {
		if segment == ReservedPrefix {
			return errReservedSource
		}
	}

	stripped := strings.ReplaceAll(source, "/", "")
	if url.QueryEscape(stripped) != stripped {
		return errUnsafeSource
	}

	return nil
}
