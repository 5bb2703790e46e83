package expansion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Hello World", "hello-world"},
		{"  Trim  me  ", "trim-me"},
		{"Café Crème", "cafe-creme"},
		{"Q&A / Live!", "q-a-live"},
		{"C++", "c"},
		{"---", ""},
		{"already-slugged", "already-slugged"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), "Slugify(%q)", tt.in)
	}
}

func TestShellSlugStable(t *testing.T) {
	values := []string{"TikTok", "Product Launch"}
	first := ShellSlug("caption", values)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ShellSlug("caption", values))
	}
	assert.Equal(t, "caption-tiktok-product-launch", first)
	assert.Equal(t, "caption", ShellSlug("caption", nil))
}
