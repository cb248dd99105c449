package passgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrength(t *testing.T) {
	tests := []struct {
		pw   string
		want Level
	}{
		{"", Weak},
		{"abc", Weak},
		{"abcdefgh", Weak},
		{"abcdefgH", Medium},
		{"abcdefghijkl", Medium},
		{"Abcdefgh1", Medium},
		{"Abcdefgh1!", Strong},
		{"Abcdefghijk1", Strong},
		{"Abcdefghij1!", Strong},
	}
	for _, tc := range tests {
		t.Run(tc.pw, func(t *testing.T) {
			assert.Equal(t, tc.want, Strength(tc.pw))
		})
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "Weak", Weak.String())
	assert.Equal(t, "Medium", Medium.String())
	assert.Equal(t, "Strong", Strong.String())
}
