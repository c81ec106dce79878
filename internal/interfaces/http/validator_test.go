package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidSlug(t *testing.T) {
	assert.True(t, ValidSlug("tenant-1"))
	assert.True(t, ValidSlug("A_b-9"))
	assert.False(t, ValidSlug(""))
	assert.False(t, ValidSlug("has space"))
	assert.False(t, ValidSlug("semi;colon"))
	assert.False(t, ValidSlug("path/../traversal"))
	assert.False(t, ValidSlug(strings.Repeat("a", MaxSlugLength+1)))
}

func TestSanitizeString(t *testing.T) {
	assert.Equal(t, "hello", SanitizeString("hel\x00lo"))
	assert.Equal(t, "plain", SanitizeString("plain"))
	assert.Equal(t, "ação", SanitizeString("ação"))

	// Invalid UTF-8 bytes are stripped, not replaced.
	assert.Equal(t, "ab", SanitizeString("a\xffb"))
}

func TestValidateLength(t *testing.T) {
	assert.True(t, ValidateLength("abc", 1, 3))
	assert.False(t, ValidateLength("", 1, 3))
	assert.False(t, ValidateLength("abcd", 1, 3))
}
