package reflectdb

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"worked example", "OOOOOO mmmmm   ZZZZZZZZZZ", "oooooo_mmmmm_zzzzzzzzzz"},
		{"camel case splits on word boundaries", "FooBarBaz", "foo_bar_baz"},
		{"diacritics fold to ascii", "Café Münster", "cafe_munster"},
		{"punctuation collapses to one underscore", "a!!b??c", "a_b_c"},
		{"leading and trailing separators are trimmed", "  -hello-  ", "hello"},
		{"already-slug input is a no-op", "already_a_slug", "already_a_slug"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, Slugify(c.in))
		})
	}
}

func TestSlugifyIsIdempotent(t *testing.T) {
	in := "Some Messy Input!!  --2026"
	once := Slugify(in)
	twice := Slugify(once)
	require.Equal(t, once, twice)
}
