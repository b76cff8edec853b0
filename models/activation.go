package models

import "time"

// Activation is a pending registration waiting for its emailed key to be
// entered. Password holds the bcrypt hash, not the plaintext.
type Activation struct {
	Username string
	Password string
	Email    string
	Created  time.Time
}
