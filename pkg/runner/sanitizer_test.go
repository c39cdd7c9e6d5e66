package runner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput(t *testing.T) {
	tests := map[string]struct {
		in   string
		want string
	}{
		"plain title":       {in: "The Matrix", want: "The Matrix"},
		"actor with accent": {in: "Penélope Cruz", want: "Penélope Cruz"},
		"line breaks kept":  {in: "Alien\r\nAliens\tAlien 3", want: "Alien\r\nAliens\tAlien 3"},
		"escape codes":      {in: "\x1b[1mHeat\x1b[0m", want: "[1mHeat[0m"},
		"nul and bell":      {in: "Se\x00ven\x07", want: "Seven"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := SanitizeInput(tt.in, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeInput_Refused(t *testing.T) {
	_, err := SanitizeInput(strings.Repeat("x", DefaultMaxInputSize), 0)
	assert.NoError(t, err)

	_, err = SanitizeInput(strings.Repeat("x", DefaultMaxInputSize+1), 0)
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeInput("Amélie", 5)
	assert.ErrorIs(t, err, ErrInputTooLarge, "limit counts bytes")

	_, err = SanitizeInput("Le Fabuleux\xff", 0)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestSanitizeToken(t *testing.T) {
	got, err := SanitizeToken(" 27205\n")
	require.NoError(t, err)
	assert.Equal(t, "27205", got)

	got, err = SanitizeToken("1-\x1b27205")
	require.NoError(t, err)
	assert.Equal(t, "1-27205", got)

	got, err = SanitizeToken("#5")
	require.NoError(t, err)
	assert.Equal(t, "#5", got)

	_, err = SanitizeToken(strings.Repeat("9", MaxTokenSize+1))
	assert.ErrorIs(t, err, ErrInputTooLarge)

	_, err = SanitizeToken("\xfe")
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}
