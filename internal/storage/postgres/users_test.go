package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"al", "al"},
		{"_", `\_`},
		{"%", `\%`},
		{`a\b`, `a\\b`},
		{"a_b%c", `a\_b\%c`},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, escapeLike(tc.in), "input %q", tc.in)
	}
}
