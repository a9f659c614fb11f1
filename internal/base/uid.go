// Package base holds small helpers shared across layers.
package base

import (
	"regexp"

	"github.com/lithammer/shortuuid/v4"
)

// UIDMatcher validates user-visible resource identifiers.
var UIDMatcher = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{1,30}[a-zA-Z0-9])?$`)

// GenerateUID returns a short, URL-safe unique identifier.
func GenerateUID() string {
	return shortuuid.New()
}

// IsValidUID reports whether id is a well-formed resource identifier.
func IsValidUID(id string) bool {
	return UIDMatcher.MatchString(id)
}
