package email

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNameFromEmail(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", DisplayNameFromEmail("ada.lovelace@example.com"))
	assert.Equal(t, "Ada", DisplayNameFromEmail("ada@example.com"))
	assert.Equal(t, "Grace Hopper", DisplayNameFromEmail("grace_b+hopper@example.com"))
	assert.Equal(t, "User", DisplayNameFromEmail("@example.com"))
}

func TestNormalize(t *testing.T) {
	got, ok := Normalize("  Ada@Example.COM ")
	assert.True(t, ok)
	assert.Equal(t, "ada@example.com", got)

	_, ok = Normalize("not an email")
	assert.False(t, ok)

	_, ok = Normalize("Ada <ada@example.com>")
	assert.False(t, ok)
}
