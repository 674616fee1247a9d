package domain

import "time"

type User struct {
	ID           string
	Email        string // lowercased, unique
	Name         string
	PasswordHash string // argon2id PHC string
	OTPSecret    string // base32
	OTPCounter   uint64 // last HOTP counter handed out
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the authenticated caller as seen by the vault.
type Identity struct {
	UserID    string
	Email     string
	Name      string
	SessionID string
}
