package entity

import "github.com/google/uuid"

// NewID returns a fresh time-ordered entity id (UUIDv7).
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}
