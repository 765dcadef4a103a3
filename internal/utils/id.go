package utils

import "github.com/google/uuid"

// NewID returns a fresh, never reused session identifier.
func NewID() string {
	return uuid.NewString()
}
