package vault

import (
	"crypto/rand"
	"fmt"
	"io"
	"runtime"

	"golang.org/x/crypto/chacha20poly1305"
)

// Sealed is one AEAD output. Tag is split out of the ciphertext so the
// container can reject blobs too short to carry one.
type Sealed struct {
	Nonce      []byte
	Ciphertext []byte
	Tag        []byte
}

// Zero overwrites b in place.
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

func randBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}

// Seal encrypts plaintext under key with XChaCha20-Poly1305 and a fresh
// random nonce. aad is authenticated but not encrypted.
func Seal(key, plaintext, aad []byte) (Sealed, error) {
	nonce, err := newNonce()
	if err != nil {
		return Sealed{}, err
	}
	return sealWithNonce(key, nonce, plaintext, aad)
}

func newNonce() ([]byte, error) {
	nonce, err := randBytes(chacha20poly1305.NonceSizeX)
	if err != nil {
		return nil, fmt.Errorf("vault: nonce: %w", err)
	}
	return nonce, nil
}

func sealWithNonce(key, nonce, plaintext, aad []byte) (Sealed, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return Sealed{}, fmt.Errorf("vault: cipher init: %w", err)
	}
	out := aead.Seal(nil, nonce, plaintext, aad)
	split := len(out) - aead.Overhead()
	return Sealed{
		Nonce:      nonce,
		Ciphertext: out[:split],
		Tag:        out[split:],
	}, nil
}

// Open authenticates and decrypts s. Any tag mismatch, whether from a wrong
// key or a modified blob, is reported as ErrIntegrity.
func Open(key []byte, s Sealed, aad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("vault: cipher init: %w", err)
	}
	if len(s.Nonce) != aead.NonceSize() || len(s.Tag) != aead.Overhead() {
		return nil, ErrIntegrity
	}
	buf := make([]byte, 0, len(s.Ciphertext)+len(s.Tag))
	buf = append(buf, s.Ciphertext...)
	buf = append(buf, s.Tag...)
	pt, err := aead.Open(nil, s.Nonce, buf, aad)
	if err != nil {
		return nil, ErrIntegrity
	}
	return pt, nil
}
