// Package policy folds per-application overrides into access and role
// decisions. The fold functions are pure; Resolver feeds them from storage.
package policy

import (
	"cmp"
	"slices"

	id "sigil/pkg/domain"
)

// ResolveAccess decides whether a user may use an application. A user
// override wins outright. Otherwise matching group overrides are applied in
// ascending priority over defaultAllowed.
func ResolveAccess(defaultAllowed bool, userOverride *bool, groupOverrides []GroupPermissionOverride, memberGroups []id.GroupID) bool {
	if userOverride != nil {
		return *userOverride
	}

	ordered := slices.Clone(groupOverrides)
	slices.SortStableFunc(ordered, func(a, b GroupPermissionOverride) int {
		return cmp.Or(cmp.Compare(a.Priority, b.Priority), cmp.Compare(a.GroupID, b.GroupID))
	})

	member := groupSet(memberGroups)
	allow := defaultAllowed
	for _, o := range ordered {
		if _, ok := member[o.GroupID]; ok {
			allow = o.Granted
		}
	}
	return allow
}

// ResolveRoles computes the user's roles for an application. Matching group
// overrides apply in ascending priority, then every user override. Granted
// adds the role, not granted removes it. The result is sorted.
func ResolveRoles(groupRoleOverrides []GroupRoleOverride, memberGroups []id.GroupID, userRoleOverrides []UserRoleOverride) []string {
	ordered := slices.Clone(groupRoleOverrides)
	slices.SortStableFunc(ordered, func(a, b GroupRoleOverride) int {
		return cmp.Or(
			cmp.Compare(a.Priority, b.Priority),
			cmp.Compare(a.GroupID, b.GroupID),
			cmp.Compare(a.Role, b.Role),
		)
	})

	member := groupSet(memberGroups)
	roles := make(map[string]struct{})
	apply := func(role string, granted bool) {
		if granted {
			roles[role] = struct{}{}
		} else {
			delete(roles, role)
		}
	}
	for _, o := range ordered {
		if _, ok := member[o.GroupID]; ok {
			apply(o.Role, o.Granted)
		}
	}
	for _, o := range userRoleOverrides {
		apply(o.Role, o.Granted)
	}

	out := make([]string, 0, len(roles))
	for role := range roles {
		out = append(out, role)
	}
	slices.Sort(out)
	return out
}

func groupSet(groups []id.GroupID) map[id.GroupID]struct{} {
	set := make(map[id.GroupID]struct{}, len(groups))
	for _, g := range groups {
		set[g] = struct{}{}
	}
	return set
}
