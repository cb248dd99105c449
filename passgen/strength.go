package passgen

import (
	"strings"
	"unicode"
)

type Level int

const (
	Weak Level = iota
	Medium
	Strong
)

func (l Level) String() string {
	switch l {
	case Strong:
		return "Strong"
	case Medium:
		return "Medium"
	default:
		return "Weak"
	}
}

// Strength scores pw one point each for length >= 8, length >= 12, and the
// presence of lowercase, uppercase, digit and symbol characters.
// 0-2 is Weak, 3-4 Medium, 5-6 Strong.
func Strength(pw string) Level {
	score := 0
	n := len([]rune(pw))
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	if strings.IndexFunc(pw, unicode.IsLower) >= 0 {
		score++
	}
	if strings.IndexFunc(pw, unicode.IsUpper) >= 0 {
		score++
	}
	if strings.IndexFunc(pw, unicode.IsDigit) >= 0 {
		score++
	}
	if strings.ContainsAny(pw, Symbols) {
		score++
	}

	switch {
	case score <= 2:
		return Weak
	case score <= 4:
		return Medium
	default:
		return Strong
	}
}
