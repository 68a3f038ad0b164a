package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLikeValue(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"ana", "ana"},
		{"100%", `100\%`},
		{"a_b", `a\_b`},
		{`back\slash`, `back\\slash`},
		{"%_", `\%\_`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLikeValue(tt.in), "input %q", tt.in)
	}
}
