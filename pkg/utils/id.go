package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new identifier with the given prefix, e.g. "session_<uuid>".
// An empty prefix yields a bare UUID.
func GenerateID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return prefix + "_" + uuid.NewString()
}
