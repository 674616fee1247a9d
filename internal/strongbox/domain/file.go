package domain

import "time"

// Envelope is everything needed to recover a file's data key. The data key
// itself is never stored in the clear.
type Envelope struct {
	ContentNonce []byte

	// Password path: argon2id(password, PasswordSalt, KDF*) wraps the data key.
	PasswordSalt       []byte
	PasswordWrappedKey []byte
	KDFMemory          uint32
	KDFIterations      uint32
	KDFParallelism     uint8

	// Owner path: HKDF(master key, OwnerSalt, owner id) wraps the data key.
	OwnerSalt       []byte
	OwnerWrappedKey []byte
}

type File struct {
	ID          string
	OwnerID     string
	Name        string
	Size        int64
	ContentType string
	BlobKey     string
	Envelope    Envelope
	Version     int64 // bumped on every ledger mutation
	UploadedAt  time.Time
}

// BlobTombstone marks a blob whose metadata is gone but whose bytes may not
// be. Housekeeping retries the delete until it sticks.
type BlobTombstone struct {
	BlobKey   string
	Attempts  int
	CreatedAt time.Time
}
