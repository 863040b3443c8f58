package admin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"":               "",
		"ada":            "ada",
		"%":              `\%`,
		"_":              `\_`,
		"100%":           `100\%`,
		"a_b%c":          `a\_b\%c`,
		`back\slash`:     `back\\slash`,
		`\%already`:      `\\\%already`,
		"ada@example.co": "ada@example.co",
	}

	for in, want := range tests {
		require.Equal(t, want, escapeLike(in), "input %q", in)
	}
}
