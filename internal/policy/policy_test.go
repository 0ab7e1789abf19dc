package policy

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "sigil/pkg/domain"
)

func boolPtr(b bool) *bool { return &b }

func TestResolveAccess(t *testing.T) {
	overrides := []GroupPermissionOverride{
		{GroupID: 1, Granted: true, Priority: 10},
		{GroupID: 2, Granted: false, Priority: 20},
		{GroupID: 3, Granted: true, Priority: 5},
	}

	tests := []struct {
		name           string
		defaultAllowed bool
		userOverride   *bool
		groups         []id.GroupID
		want           bool
	}{
		{name: "default applies without matching groups", defaultAllowed: true, groups: []id.GroupID{9}, want: true},
		{name: "default deny without groups", defaultAllowed: false, want: false},
		{name: "single matching group grants", groups: []id.GroupID{1}, want: true},
		{name: "highest priority group wins", groups: []id.GroupID{1, 2, 3}, want: false},
		{name: "lower priority group overridden", groups: []id.GroupID{3, 1}, want: true},
		{name: "user grant beats group deny", groups: []id.GroupID{2}, userOverride: boolPtr(true), want: true},
		{name: "user deny beats default and groups", defaultAllowed: true, groups: []id.GroupID{1, 3}, userOverride: boolPtr(false), want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveAccess(tt.defaultAllowed, tt.userOverride, overrides, tt.groups)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveAccessPermutationInvariant(t *testing.T) {
	overrides := []GroupPermissionOverride{
		{GroupID: 1, Granted: true, Priority: 1},
		{GroupID: 2, Granted: false, Priority: 2},
		{GroupID: 3, Granted: true, Priority: 2},
		{GroupID: 4, Granted: false, Priority: 7},
		{GroupID: 5, Granted: true, Priority: -3},
	}
	memberships := [][]id.GroupID{{1}, {1, 2}, {2, 3}, {3, 2, 5}, {5, 4}, {1, 2, 3, 4, 5}}

	rng := rand.New(rand.NewPCG(1, 2))
	for _, groups := range memberships {
		want := ResolveAccess(false, nil, overrides, groups)
		for range 200 {
			shuffled := append([]GroupPermissionOverride(nil), overrides...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			members := append([]id.GroupID(nil), groups...)
			rng.Shuffle(len(members), func(i, j int) { members[i], members[j] = members[j], members[i] })

			require.Equal(t, want, ResolveAccess(false, nil, shuffled, members), "groups %v order %v", groups, shuffled)
		}
	}
}

func TestResolveAccessDoesNotMutateInput(t *testing.T) {
	overrides := []GroupPermissionOverride{
		{GroupID: 1, Priority: 9},
		{GroupID: 2, Priority: 1},
	}
	ResolveAccess(false, nil, overrides, []id.GroupID{1, 2})
	assert.Equal(t, id.GroupID(1), overrides[0].GroupID)
}

func TestResolveRoles(t *testing.T) {
	t.Run("group then user layering", func(t *testing.T) {
		groupOverrides := []GroupRoleOverride{
			{GroupID: 2, Role: "admin", Granted: false, Priority: 2},
			{GroupID: 1, Role: "admin", Granted: true, Priority: 1},
		}
		userOverrides := []UserRoleOverride{{Role: "admin", Granted: true}}

		assert.Equal(t, []string{"admin"}, ResolveRoles(groupOverrides, []id.GroupID{1, 2}, userOverrides))
		assert.Empty(t, ResolveRoles(groupOverrides, []id.GroupID{1, 2}, nil))
	})

	t.Run("non-member groups are ignored", func(t *testing.T) {
		groupOverrides := []GroupRoleOverride{
			{GroupID: 1, Role: "viewer", Granted: true},
			{GroupID: 2, Role: "editor", Granted: true},
		}
		assert.Equal(t, []string{"viewer"}, ResolveRoles(groupOverrides, []id.GroupID{1}, nil))
	})

	t.Run("user revoke removes group grant", func(t *testing.T) {
		groupOverrides := []GroupRoleOverride{
			{GroupID: 1, Role: "viewer", Granted: true},
			{GroupID: 1, Role: "editor", Granted: true},
		}
		userOverrides := []UserRoleOverride{{Role: "editor", Granted: false}, {Role: "auditor", Granted: true}}
		assert.Equal(t, []string{"auditor", "viewer"}, ResolveRoles(groupOverrides, []id.GroupID{1}, userOverrides))
	})

	t.Run("output is sorted and never nil", func(t *testing.T) {
		out := ResolveRoles(nil, nil, []UserRoleOverride{{Role: "zeta", Granted: true}, {Role: "alpha", Granted: true}})
		assert.Equal(t, []string{"alpha", "zeta"}, out)
		assert.NotNil(t, ResolveRoles(nil, nil, nil))
	})
}

func TestResolveRolesPermutationInvariant(t *testing.T) {
	groupOverrides := []GroupRoleOverride{
		{GroupID: 1, Role: "admin", Granted: true, Priority: 1},
		{GroupID: 2, Role: "admin", Granted: false, Priority: 2},
		{GroupID: 3, Role: "editor", Granted: true, Priority: 2},
		{GroupID: 4, Role: "editor", Granted: false, Priority: 2},
		{GroupID: 1, Role: "viewer", Granted: true, Priority: 1},
	}
	groups := []id.GroupID{1, 2, 3, 4}
	want := ResolveRoles(groupOverrides, groups, nil)

	rng := rand.New(rand.NewPCG(3, 4))
	for range 200 {
		shuffled := append([]GroupRoleOverride(nil), groupOverrides...)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		require.Equal(t, want, ResolveRoles(shuffled, groups, nil))
	}
}

type stubOverrides struct {
	userPerm    *UserPermissionOverride
	groupPerms  []GroupPermissionOverride
	userRoles   []UserRoleOverride
	groupRoles  []GroupRoleOverride
	err         error
	lastClient  id.ClientID
	lastUserArg id.UserID
}

func (s *stubOverrides) FindUserPermissionOverride(_ context.Context, userID id.UserID, clientID id.ClientID) (*UserPermissionOverride, error) {
	s.lastUserArg, s.lastClient = userID, clientID
	return s.userPerm, s.err
}

func (s *stubOverrides) ListGroupPermissionOverrides(context.Context, id.ClientID) ([]GroupPermissionOverride, error) {
	return s.groupPerms, nil
}

func (s *stubOverrides) ListUserRoleOverrides(context.Context, id.UserID, id.ClientID) ([]UserRoleOverride, error) {
	return s.userRoles, nil
}

func (s *stubOverrides) ListGroupRoleOverrides(context.Context, id.ClientID) ([]GroupRoleOverride, error) {
	return s.groupRoles, s.err
}

type stubMemberships map[id.UserID][]id.GroupID

func (m stubMemberships) ListGroupIDsForUser(_ context.Context, userID id.UserID) ([]id.GroupID, error) {
	return m[userID], nil
}

func TestResolver(t *testing.T) {
	ctx := context.Background()
	members := stubMemberships{7: {1, 2}}

	t.Run("allowed via group", func(t *testing.T) {
		store := &stubOverrides{groupPerms: []GroupPermissionOverride{{GroupID: 2, Granted: true}}}
		allowed, err := NewResolver(store, members).IsUserAllowed(ctx, 7, App{ClientID: "app", DefaultAllowed: false})
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, id.ClientID("app"), store.lastClient)
		assert.Equal(t, id.UserID(7), store.lastUserArg)
	})

	t.Run("user override short-circuits", func(t *testing.T) {
		store := &stubOverrides{
			userPerm:   &UserPermissionOverride{Granted: false},
			groupPerms: []GroupPermissionOverride{{GroupID: 2, Granted: true}},
		}
		allowed, err := NewResolver(store, members).IsUserAllowed(ctx, 7, App{ClientID: "app", DefaultAllowed: true})
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("roles", func(t *testing.T) {
		store := &stubOverrides{
			groupRoles: []GroupRoleOverride{{GroupID: 1, Role: "admin", Granted: true, Priority: 1}, {GroupID: 2, Role: "admin", Granted: false, Priority: 2}},
			userRoles:  []UserRoleOverride{{Role: "admin", Granted: true}},
		}
		roles, err := NewResolver(store, members).UserRoles(ctx, 7, "app")
		require.NoError(t, err)
		assert.Equal(t, []string{"admin"}, roles)
	})

	t.Run("store errors propagate", func(t *testing.T) {
		boom := errors.New("db down")
		store := &stubOverrides{err: boom}
		_, err := NewResolver(store, members).IsUserAllowed(ctx, 7, App{ClientID: "app"})
		require.ErrorIs(t, err, boom)
		_, err = NewResolver(store, members).UserRoles(ctx, 7, "app")
		require.ErrorIs(t, err, boom)
	})
}
