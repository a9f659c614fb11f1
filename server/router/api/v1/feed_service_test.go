package v1

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestFeedItemTitle(t *testing.T) {
	short := "What is 2+2?"
	assert.Equal(t, short, feedItemTitle(short))

	long := strings.Repeat("a", 100)
	got := feedItemTitle(long)
	assert.Equal(t, strings.Repeat("a", 77)+"...", got)

	// Multi-byte content must not be cut mid-rune.
	cjk := strings.Repeat("题", 100)
	got = feedItemTitle(cjk)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("题", 77)+"...", got)
}
