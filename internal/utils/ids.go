package utils

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// NewID returns a lowercase ULID, sortable by creation time.
func NewID() string {
	return strings.ToLower(ulid.Make().String())
}

// ValidID reports whether s looks like an id produced by NewID.
func ValidID(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
