package policy

import (
	id "sigil/pkg/domain"
)

type UserPermissionOverride struct {
	UserID   id.UserID   `json:"user_id"`
	ClientID id.ClientID `json:"client_id"`
	Granted  bool        `json:"granted"`
}

// GroupPermissionOverride applies to members of GroupID. Lower priorities are
// applied first, so the highest priority wins.
type GroupPermissionOverride struct {
	GroupID  id.GroupID  `json:"group_id"`
	ClientID id.ClientID `json:"client_id"`
	Granted  bool        `json:"granted"`
	Priority int32       `json:"override_priority"`
}

type UserRoleOverride struct {
	UserID   id.UserID   `json:"user_id"`
	ClientID id.ClientID `json:"client_id"`
	Role     string      `json:"role"`
	Granted  bool        `json:"granted"`
}

type GroupRoleOverride struct {
	GroupID  id.GroupID  `json:"group_id"`
	ClientID id.ClientID `json:"client_id"`
	Role     string      `json:"role"`
	Granted  bool        `json:"granted"`
	Priority int32       `json:"override_priority"`
}
