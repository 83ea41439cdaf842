package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"https://x.com/a/", "https://x.com/a"},
		{"https://x.com/a", "https://x.com/a"},
		{"  https://x.com/a/ \n", "https://x.com/a"},
		{"https://x.com/a/?page=2", "https://x.com/a?page=2"},
		{"https://x.com/a?next=/b/", "https://x.com/a?next=/b/"},
		{"https://x.com/a/#intro", "https://x.com/a/#intro"},
		{"https://x.com/a//", "https://x.com/a"},
		{"HTTPS://X.com/A%2F/", "HTTPS://X.com/A%2F"},
		{"/", "/"},
		{"//", "/"},
		{"", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, CanonicalURL(tt.in), tt.in)
	}
}

func TestCanonicalURLIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"https://x.com/a/",
		"https://x.com/a//?q=1",
		"https://x.com/a/#f",
		"https://x.com/?",
		"https://x.com/a#frag?x=/",
		" / ",
		"///",
		"https://arxiv.org/abs/2501.00001v2/",
	}

	for _, in := range inputs {
		once := CanonicalURL(in)
		assert.Equal(t, once, CanonicalURL(once), in)
	}
}

func TestCanonicalURLSharedIdentity(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CanonicalURL("https://x.com/a/"), CanonicalURL("https://x.com/a"))
	assert.NotEqual(t, CanonicalURL("https://x.com/a"), CanonicalURL("https://x.com/b"))
}
