package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sigil/internal/policy"
	dErrors "sigil/pkg/domain-errors"
)

func TestIsSafeRedirectURI(t *testing.T) {
	cases := map[string]bool{
		"https://app.example.com/cb":   true,
		"http://localhost:3000/cb?x=1": true,
		"com.example.app:/oauth":       true,
		"javascript:alert(1)":          false,
		"JavaScript:alert(1)":          false,
		"data:text/html,hi":            false,
		"/relative/cb":                 false,
		"":                             false,
		"://missing-scheme":            false,
	}
	for uri, want := range cases {
		assert.Equal(t, want, IsSafeRedirectURI(uri), uri)
	}
}

func TestNewClient(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("valid", func(t *testing.T) {
		in := ClientInput{AppName: " Wiki ", RedirectURIs: []string{"https://wiki.example.com/cb", " https://wiki.example.com/cb", ""}, AllowExplicitFlow: true}
		in.Normalize()
		c, err := NewClient("123", "hash", in, now)
		require.NoError(t, err)
		assert.Equal(t, "Wiki", c.AppName)
		assert.Equal(t, []string{"https://wiki.example.com/cb"}, c.RedirectURIs)
		assert.False(t, c.IsManaged)
		assert.True(t, c.HasRedirectURI("https://wiki.example.com/cb"))
		assert.False(t, c.HasRedirectURI("https://wiki.example.com/cb/"))
	})

	t.Run("empty name", func(t *testing.T) {
		_, err := NewClient("123", "hash", ClientInput{}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("long name", func(t *testing.T) {
		_, err := NewClient("123", "hash", ClientInput{AppName: strings.Repeat("a", 129)}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("script redirect", func(t *testing.T) {
		_, err := NewClient("123", "hash", ClientInput{AppName: "x", RedirectURIs: []string{"javascript:alert(1)"}}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidRedirectURI))
	})
}

func TestValidateOverrides(t *testing.T) {
	assert.NoError(t, ValidateGroupPermissionOverrides([]policy.GroupPermissionOverride{{GroupID: 1}, {GroupID: 2}}))
	assert.True(t, dErrors.HasCode(
		ValidateGroupPermissionOverrides([]policy.GroupPermissionOverride{{GroupID: 1}, {GroupID: 1, Granted: true}}),
		dErrors.CodeBadRequest))
	assert.True(t, dErrors.HasCode(
		ValidateGroupPermissionOverrides([]policy.GroupPermissionOverride{{}}),
		dErrors.CodeBadRequest))

	assert.NoError(t, ValidateGroupRoleOverrides([]policy.GroupRoleOverride{{GroupID: 1, Role: "a"}, {GroupID: 1, Role: "b"}}))
	assert.Error(t, ValidateGroupRoleOverrides([]policy.GroupRoleOverride{{GroupID: 1, Role: "a"}, {GroupID: 1, Role: "a"}}))
	assert.Error(t, ValidateGroupRoleOverrides([]policy.GroupRoleOverride{{GroupID: 1, Role: " "}}))
}
