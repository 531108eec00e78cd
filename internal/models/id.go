package models

import "github.com/google/uuid"

// NewID returns a new random primary key.
func NewID() string { return uuid.NewString() }
