package vault

import (
	"crypto/sha256"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
)

const DefaultIterations = 100000

// Upper bounds on derivation cost. A header is read before it can be
// authenticated, so these keep a damaged container from stalling Open or
// exhausting memory.
const (
	MaxIterations    = 10_000_000
	MaxArgon2Time    = 64
	MaxArgon2Memory  = 4 * 1024 * 1024 // KiB, 4 GiB
	MaxArgon2Threads = 64
)

func DefaultKDFParams() *KDFParams {
	return &KDFParams{Algo: KDFPBKDF2SHA256, Iterations: DefaultIterations}
}

// Argon2idKDFParams returns the Argon2id cost (3 passes, 64 MiB, 4 lanes)
// used when a vault opts out of PBKDF2.
func Argon2idKDFParams() *KDFParams {
	return &KDFParams{Algo: KDFArgon2id, Time: 3, Memory: 64 * 1024, Threads: 4}
}

// Derive stretches passphrase into a KeyLen key with PBKDF2-HMAC-SHA256.
// The same inputs always produce the same key.
func Derive(passphrase, salt []byte, iterations int) []byte {
	return pbkdf2.Key(passphrase, salt, iterations, KeyLen, sha256.New)
}

// Validate reports whether p describes a usable derivation.
func (p KDFParams) Validate() error {
	switch p.Algo {
	case KDFPBKDF2SHA256:
		if p.Iterations == 0 || p.Iterations > MaxIterations {
			return fmt.Errorf("%w: pbkdf2 iterations must be in 1..%d, got %d", ErrValidation, MaxIterations, p.Iterations)
		}
	case KDFArgon2id:
		if p.Time == 0 || p.Memory == 0 || p.Threads == 0 {
			return fmt.Errorf("%w: argon2id time, memory and threads must be positive", ErrValidation)
		}
		if p.Time > MaxArgon2Time || p.Memory > MaxArgon2Memory || p.Threads > MaxArgon2Threads {
			return fmt.Errorf("%w: argon2id cost exceeds limits (time %d, memory %d KiB, threads %d)",
				ErrValidation, p.Time, p.Memory, p.Threads)
		}
	default:
		return fmt.Errorf("%w: unknown kdf algorithm %d", ErrValidation, p.Algo)
	}
	return nil
}

// DeriveKey derives the vault key according to params.
func DeriveKey(passphrase, salt []byte, params KDFParams) ([]byte, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	switch params.Algo {
	case KDFArgon2id:
		return argon2.IDKey(passphrase, salt, params.Time, params.Memory, params.Threads, KeyLen), nil
	default:
		return Derive(passphrase, salt, int(params.Iterations)), nil
	}
}
