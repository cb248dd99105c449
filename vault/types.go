package vault

import (
	"errors"
	"time"
)

const (
	KeyLen   = 32
	SaltLen  = 16
	NonceLen = 24
	TagLen   = 16
	Magic    = "PWLT"
	Version  = 0x01
)

var (
	ErrValidation         = errors.New("vault: invalid input")
	ErrAuthFailed         = errors.New("vault: authentication failed")
	ErrIntegrity          = errors.New("vault: integrity check failed")
	ErrFormat             = errors.New("vault: malformed container")
	ErrIO                 = errors.New("vault: i/o failure")
	ErrLocked             = errors.New("vault: locked")
	ErrClosed             = errors.New("vault: closed")
	ErrUnlocked           = errors.New("vault: already unlocked")
	ErrNotInitialized     = errors.New("vault: not initialized")
	ErrAlreadyInitialized = errors.New("vault: already initialized")
	ErrModifiedExternally = errors.New("vault: container modified on disk since last read")
	ErrNotFound           = errors.New("vault: record not found")
)

// Record is a single site credential. ID and CreatedAt never change once the
// record is added to a Repository.
type Record struct {
	ID        string    `json:"id"`
	SiteName  string    `json:"site"`
	Username  string    `json:"username"`
	Password  []byte    `json:"password"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (r Record) clone() Record {
	if r.Password != nil {
		r.Password = append([]byte{}, r.Password...)
	}
	return r
}

type KDFAlgo uint8

const (
	KDFPBKDF2SHA256 KDFAlgo = 0x01
	KDFArgon2id     KDFAlgo = 0x02
)

func (a KDFAlgo) String() string {
	switch a {
	case KDFPBKDF2SHA256:
		return "pbkdf2-sha256"
	case KDFArgon2id:
		return "argon2id"
	default:
		return "unknown"
	}
}

// KDFParams is the per-vault key derivation cost, recorded in the container
// header so vaults created with different costs stay readable.
type KDFParams struct {
	Algo       KDFAlgo
	Iterations uint32

	// Argon2id only.
	Time, Memory uint32
	Threads      uint8
}

// State is the lifecycle position of a Store.
type State int

const (
	Uninitialized State = iota
	Locked
	Unlocked
	Closed
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Locked:
		return "locked"
	case Unlocked:
		return "unlocked"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

type fileHeader struct {
	KDF   KDFParams
	Nonce []byte
}
