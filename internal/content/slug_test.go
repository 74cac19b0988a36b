package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Festa de Iemanjá", "festa-de-iemanja"},
		{"Oração a São Jorge", "oracao-a-sao-jorge"},
		{"Hello, World!", "hello-world"},
		{"  spaced   out  ", "spaced-out"},
		{"Já é 2024", "ja-e-2024"},
		{"UPPER", "upper"},
		{"???", ""},
		{"", ""},
		{"---", ""},
		{"a--b", "a-b"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), "input %q", tc.in)
	}
}
