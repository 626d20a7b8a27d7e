package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripFragment(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no fragment", "https://example.com/a", "https://example.com/a"},
		{"fragment removed", "https://example.com/a#section-2", "https://example.com/a"},
		{"empty fragment", "https://example.com/a#", "https://example.com/a"},
		{"fragment with query", "https://example.com/a?q=1#top", "https://example.com/a?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFragment(tt.in))
		})
	}
}

func TestHostVariants(t *testing.T) {
	got := HostVariants("https://example.com/news")
	assert.Equal(t, []string{"https://example.com/news", "https://www.example.com/news"}, got)

	got = HostVariants("https://www.example.com/news")
	assert.Equal(t, []string{"https://www.example.com/news", "https://example.com/news"}, got)
}

func TestSameDocument(t *testing.T) {
	assert.True(t, SameDocument("https://example.com/a", "https://example.com/a"))
	assert.True(t, SameDocument("https://example.com/a#x", "https://example.com/a"))
	assert.True(t, SameDocument("https://www.example.com/a", "https://example.com/a"))
	assert.False(t, SameDocument("https://example.com/a", "https://example.com/b"))
	assert.False(t, SameDocument("https://example.com/a", "https://other.com/a"))
}
