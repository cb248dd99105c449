// Package passgen generates random passwords and diceware passphrases from
// a cryptographically secure source.
package passgen

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"github.com/sethvargo/go-diceware/diceware"
)

const (
	Upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	Lower   = "abcdefghijklmnopqrstuvwxyz"
	Digits  = "0123456789"
	Symbols = "!@#$%^&*()_+-=[]{}|;:,.<>?"
)

var ErrValidation = errors.New("passgen: invalid policy")

// Policy selects the length and the character classes of a password.
type Policy struct {
	Length  int
	Upper   bool
	Lower   bool
	Digits  bool
	Symbols bool
}

// DefaultPolicy matches the interactive default: 12 characters, all classes.
func DefaultPolicy() Policy {
	return Policy{Length: 12, Upper: true, Lower: true, Digits: true, Symbols: true}
}

// Alphabet is the union of the enabled classes.
func (p Policy) Alphabet() string {
	var b strings.Builder
	if p.Upper {
		b.WriteString(Upper)
	}
	if p.Lower {
		b.WriteString(Lower)
	}
	if p.Digits {
		b.WriteString(Digits)
	}
	if p.Symbols {
		b.WriteString(Symbols)
	}
	return b.String()
}

func (p Policy) Validate() error {
	if p.Length < 1 {
		return fmt.Errorf("%w: length must be at least 1, got %d", ErrValidation, p.Length)
	}
	if !p.Upper && !p.Lower && !p.Digits && !p.Symbols {
		return fmt.Errorf("%w: no character class enabled", ErrValidation)
	}
	return nil
}

// Generate draws every character independently and uniformly from the
// enabled alphabet. A short password may therefore miss some enabled class.
func (p Policy) Generate() (string, error) {
	return p.generate(rand.Reader)
}

func (p Policy) generate(r io.Reader) (string, error) {
	if err := p.Validate(); err != nil {
		return "", err
	}
	alphabet := p.Alphabet()
	n := big.NewInt(int64(len(alphabet)))
	out := make([]byte, p.Length)
	for i := range out {
		idx, err := rand.Int(r, n)
		if err != nil {
			return "", fmt.Errorf("passgen: random source: %w", err)
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}

func Generate(length int, upper, lower, digits, symbols bool) (string, error) {
	return Policy{Length: length, Upper: upper, Lower: lower, Digits: digits, Symbols: symbols}.Generate()
}

// Passphrase joins words diceware words with sep.
func Passphrase(words int, sep string) (string, error) {
	if words < 1 {
		return "", fmt.Errorf("%w: passphrase needs at least 1 word, got %d", ErrValidation, words)
	}
	list, err := diceware.Generate(words)
	if err != nil {
		return "", fmt.Errorf("passgen: diceware: %w", err)
	}
	return strings.Join(list, sep), nil
}
