package crawlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrontierDedup(t *testing.T) {
	f := NewFrontier()

	assert.True(t, f.Add("https://example.com/a"))
	assert.False(t, f.Add("https://example.com/a"))
	assert.True(t, f.Add("https://example.com/b"))
	assert.Equal(t, 2, f.Len())
}

func TestFrontierPopOrder(t *testing.T) {
	f := NewFrontier()
	f.Add("a")
	f.Add("b")

	assert.Equal(t, "a", f.Pop())
	assert.Equal(t, "b", f.Pop())
	assert.Equal(t, "", f.Pop())
}

func TestFrontierReAddAfterPop(t *testing.T) {
	f := NewFrontier()
	f.Add("a")
	f.Pop()

	// A popped URL may be queued again; crawl-age filtering happens later.
	assert.True(t, f.Add("a"))
}

func TestFrontierEmptyURL(t *testing.T) {
	f := NewFrontier()
	assert.False(t, f.Add(""))
	assert.Equal(t, 0, f.Len())
}
